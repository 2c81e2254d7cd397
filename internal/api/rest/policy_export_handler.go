package rest

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sgisi-platform/go-core/internal/policy"
)

// policyMatrixHandler handles GET /v1/policy/matrix?format=json|yaml. It
// renders the compiled decision table for operators.
func (s *Server) policyMatrixHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.mustActor(w, r); !ok {
		return
	}

	format := policy.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = policy.FormatJSON
	}

	switch format {
	case policy.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	case policy.FormatYAML:
		w.Header().Set("Content-Type", "application/x-yaml")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", "decision-matrix.yaml"))
	default:
		WriteError(w, http.StatusBadRequest, "format must be json or yaml")
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := s.exporter.ExportTo(w, format); err != nil {
		s.logger.Error("Matrix export failed", zap.String("format", string(format)), zap.Error(err))
	}
}
