// Package rest provides the REST API server implementation
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sgisi-platform/go-core/internal/identity"
	"github.com/sgisi-platform/go-core/internal/store"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SignUpRequest represents an account registration request
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nombre   string `json:"nombre,omitempty"`
}

// SignInRequest represents a password sign-in request
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendCodeRequest represents an authentication-code relay request
type SendCodeRequest struct {
	To   string `json:"to"`
	Code string `json:"code"`
}

// SendCodeResponse confirms a relayed authentication code
type SendCodeResponse struct {
	OK bool `json:"ok"`
}

// TeamRequest represents a team create/update request
type TeamRequest struct {
	Nombre string `json:"nombre"`
}

// EvidenceUploadResponse returns the stored object name after an upload
type EvidenceUploadResponse struct {
	Archivo string `json:"archivo"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// StatusResponse represents service status
type StatusResponse struct {
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// writeDomainError maps store and identity errors onto HTTP statuses. The
// denial message stays generic so callers cannot probe row existence.
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrPermissionDenied):
		WriteError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, store.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		WriteError(w, http.StatusConflict, "already exists")
	case errors.Is(err, identity.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, identity.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrEmailTaken):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrTooManyAttempts):
		WriteError(w, http.StatusTooManyRequests, err.Error())
	default:
		logger.Error("Unhandled request error", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes a request body, rejecting unknown payload shapes early
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}
