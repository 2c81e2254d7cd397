package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sgisi-platform/go-core/pkg/types"
)

// listTeamsHandler handles GET /v1/teams. Non-chief callers get an empty
// list rather than an error.
func (s *Server) listTeamsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	teams, err := s.teams.List(r.Context(), actor)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	if teams == nil {
		teams = []types.Team{}
	}

	WriteJSON(w, http.StatusOK, teams)
}

// getTeamHandler handles GET /v1/teams/{id}
func (s *Server) getTeamHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	team, err := s.teams.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, team)
}

// createTeamHandler handles POST /v1/teams (chief-only)
func (s *Server) createTeamHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	var req TeamRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Nombre) == "" {
		WriteError(w, http.StatusBadRequest, "nombre is required")
		return
	}

	team, err := s.teams.Create(r.Context(), actor, &types.Team{Nombre: req.Nombre})
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, team)
}

// updateTeamHandler handles PUT /v1/teams/{id} (chief-only)
func (s *Server) updateTeamHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	var req TeamRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Nombre) == "" {
		WriteError(w, http.StatusBadRequest, "nombre is required")
		return
	}

	team, err := s.teams.Update(r.Context(), actor, mux.Vars(r)["id"], req.Nombre)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, team)
}

// deleteTeamHandler handles DELETE /v1/teams/{id} (chief-only)
func (s *Server) deleteTeamHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	if err := s.teams.Delete(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
