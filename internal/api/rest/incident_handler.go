package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sgisi-platform/go-core/pkg/types"
)

// listIncidentsHandler handles GET /v1/incidentes. The result set is
// already narrowed to the caller's visible rows.
func (s *Server) listIncidentsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	incidents, err := s.incidents.List(r.Context(), actor)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	if incidents == nil {
		incidents = []types.Incident{}
	}

	WriteJSON(w, http.StatusOK, incidents)
}

// getIncidentHandler handles GET /v1/incidentes/{id}
func (s *Server) getIncidentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	incident, err := s.incidents.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, incident)
}

// createIncidentHandler handles POST /v1/incidentes. A missing dueño
// defaults to the caller.
func (s *Server) createIncidentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	var incident types.Incident
	if err := decodeJSON(r, &incident); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if incident.Estado == "" {
		incident.Estado = types.StateNew
	}

	created, err := s.incidents.Create(r.Context(), actor, &incident)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// updateIncidentHandler handles PUT /v1/incidentes/{id}
func (s *Server) updateIncidentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	var patch types.IncidentPatch
	if err := decodeJSON(r, &patch); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.incidents.Update(r.Context(), actor, mux.Vars(r)["id"], &patch)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, updated)
}

// deleteIncidentHandler handles DELETE /v1/incidentes/{id} (chief-only)
func (s *Server) deleteIncidentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	if err := s.incidents.Delete(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
