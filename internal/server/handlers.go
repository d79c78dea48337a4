package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/annotator/internal/backend"
	"github.com/MeKo-Tech/annotator/internal/render"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// uploadImageHandler stores an uploaded image in the image directory, so
// sessions can draw it, and forwards it to the prediction backend.
func (s *Server) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || !render.IsSupportedImage(name) {
		s.writeErrorResponse(w, fmt.Sprintf("Unsupported image file %q", header.Filename), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	_, meta, err := render.DecodeImage(bytes.NewReader(data))
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}
	s.logger.Debug("image upload decoded", "filename", name, "format", meta.Format,
		"width", meta.Width, "height", meta.Height)

	if s.imageDir != "" {
		if err := s.storeImage(name, data); err != nil {
			s.logger.Error("storing upload", "filename", name, "error", err)
			s.writeErrorResponse(w, "Failed to store image", http.StatusInternalServerError)
			return
		}
	}

	resp, err := s.backend.UploadImage(r.Context(), name, bytes.NewReader(data))
	if err != nil {
		s.logger.Error("backend call failed", "operation", backend.OpUploadImage, "filename", name, "error", err)
		s.writeErrorResponse(w, fmt.Sprintf("Backend upload failed: %v", err), http.StatusBadGateway)
		return
	}
	if resp.Filename == "" {
		resp.Filename = name
	}

	s.logger.Info("image uploaded", "filename", resp.Filename, "size_bytes", len(data))
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) storeImage(name string, data []byte) error {
	if err := os.MkdirAll(s.imageDir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.imageDir, name), data, 0o600)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}
