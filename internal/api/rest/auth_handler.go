package rest

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sgisi-platform/go-core/internal/identity"
	"github.com/sgisi-platform/go-core/internal/mailer"
)

// signUpHandler handles POST /v1/auth/signup
func (s *Server) signUpHandler(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.identity.SignUp(r.Context(), req.Email, req.Password, req.Nombre)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{
		"id":    user.ID,
		"email": user.Email,
	})
}

// signInHandler handles POST /v1/auth/signin
func (s *Server) signInHandler(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.identity.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		if s.metrics != nil {
			outcome := "failure"
			if errors.Is(err, identity.ErrTooManyAttempts) {
				outcome = "throttled"
			}
			s.metrics.RecordSignIn(outcome)
		}
		writeDomainError(w, s.logger, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordSignIn("success")
	}
	WriteJSON(w, http.StatusOK, session)
}

// signOutHandler handles POST /v1/auth/signout. The session token to revoke
// comes from the Authorization header.
func (s *Server) signOutHandler(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := s.identity.SignOut(r.Context(), token); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// meHandler handles GET /v1/auth/me
func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.mustActor(w, r)
	if !ok {
		return
	}

	profile, err := s.profiles.Get(r.Context(), actor, actor.ID)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

// sendCodeHandler handles POST /v1/auth/send-code. It relays a one-time
// authentication code over SMTP without persisting it.
func (s *Server) sendCodeHandler(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		WriteError(w, http.StatusServiceUnavailable, "mail relay is not configured")
		return
	}

	var req SendCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.mailer.SendCode(req.To, req.Code); err != nil {
		if errors.Is(err, mailer.ErrMissingParams) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("Code relay failed", zap.String("to", req.To), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "could not send code")
		return
	}

	WriteJSON(w, http.StatusOK, SendCodeResponse{OK: true})
}
