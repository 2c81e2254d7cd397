package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sgisi-platform/go-core/internal/evidence"
)

// maxEvidenceSize caps multipart uploads at 25 MiB
const maxEvidenceSize = 25 << 20

// uploadEvidenceHandler handles POST /v1/evidence. The file arrives as the
// multipart field "archivo" and is stored encrypted; the response carries
// the object name to record on the incident.
func (s *Server) uploadEvidenceHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.mustActor(w, r); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceSize)
	if err := r.ParseMultipartForm(maxEvidenceSize); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("archivo")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "archivo field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	name, err := s.evidence.Upload(r.Context(), header.Filename, data)
	if err != nil {
		s.logger.Error("Evidence upload failed", zap.String("filename", header.Filename), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "could not store evidence")
		return
	}

	WriteJSON(w, http.StatusCreated, EvidenceUploadResponse{Archivo: name})
}

// downloadEvidenceHandler handles GET /v1/evidence/{name}. The object is
// decrypted and streamed back under its original filename.
func (s *Server) downloadEvidenceHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.mustActor(w, r); !ok {
		return
	}

	name := mux.Vars(r)["name"]

	data, err := s.evidence.Download(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, evidence.ErrObjectNotFound):
			WriteError(w, http.StatusNotFound, "not found")
		case errors.Is(err, evidence.ErrCorrupt):
			s.logger.Error("Evidence decryption failed", zap.String("object", name))
			WriteError(w, http.StatusInternalServerError, "could not read evidence")
		default:
			s.logger.Error("Evidence download failed", zap.String("object", name), zap.Error(err))
			WriteError(w, http.StatusInternalServerError, "could not read evidence")
		}
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", evidence.DownloadName(name)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
