package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sgisi-platform/go-core/pkg/types"
)

// listProfilesHandler handles GET /v1/profiles. Non-chief callers see at
// most their own row.
func (s *Server) listProfilesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	profiles, err := s.profiles.List(r.Context(), actor)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, profiles)
}

// getProfileHandler handles GET /v1/profiles/{id}
func (s *Server) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	profile, err := s.profiles.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

// updateProfileHandler handles PUT /v1/profiles/{id}. Role and team
// assignment is reserved to the chief.
func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	var patch types.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := s.profiles.Update(r.Context(), actor, mux.Vars(r)["id"], &patch)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}
