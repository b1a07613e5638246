package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/slok/recup/internal/model"
)

// taskResponse is the JSON shape of a task snapshot.
type taskResponse struct {
	UploadID  string                 `json:"upload_id"`
	Progress  int                    `json:"progress"`
	Status    string                 `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Result    map[string]interface{} `json:"result,omitempty"`
	Cancelled bool                   `json:"cancelled"`
}

func newTaskResponse(t model.UploadTask) taskResponse {
	return taskResponse{
		UploadID:  t.ID,
		Progress:  t.Progress,
		Status:    string(t.Status),
		Error:     t.Error,
		Result:    t.Result,
		Cancelled: t.CancelRequested,
	}
}

// recordingResponse is the JSON shape of a recording listing item.
type recordingResponse struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Timestamp  *int64    `json:"timestamp,omitempty"`
	Duration   *float64  `json:"duration,omitempty"`
	Active     bool      `json:"active"`
}

type settingsRequest struct {
	UploadURL string `json:"upload_url"`
}

type filePathRequest struct {
	FilePath string `json:"file_path"`
}

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.recordings.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]recordingResponse, 0, len(recs))
	for _, rec := range recs {
		item := recordingResponse{
			Path:       rec.Path,
			Size:       rec.SizeBytes,
			ModifiedAt: rec.ModifiedAt.UTC(),
			Active:     rec.Active,
		}
		if rec.Meta != nil {
			ts := rec.Meta.Timestamp.Unix()
			dur := rec.Meta.Duration.Seconds()
			item.Timestamp = &ts
			item.Duration = &dur
		}
		resp = append(resp, item)
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, settingsRequest{UploadURL: settings.UploadURL})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.settings.Save(r.Context(), model.Settings{UploadURL: req.UploadURL}); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleStartUpload(w http.ResponseWriter, r *http.Request) {
	var req filePathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FilePath == "" {
		s.writeErrorMsg(w, http.StatusBadRequest, "file_path is required")
		return
	}

	id, err := s.uploads.Start(r.Context(), req.FilePath)
	if err != nil {
		// A missing source file is a bad request here, not a missing resource.
		if errors.Is(err, model.ErrNotFound) {
			s.writeErrorMsg(w, http.StatusBadRequest, "File not found")
			return
		}
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"upload_id": id,
		"status":    "started",
	})
}

func (s *Server) handleUploadProgress(w http.ResponseWriter, r *http.Request) {
	task, err := s.uploads.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newTaskResponse(*task))
}

func (s *Server) handleCancelUpload(w http.ResponseWriter, r *http.Request) {
	_, err := s.uploads.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *Server) handleDeleteRecording(w http.ResponseWriter, r *http.Request) {
	var req filePathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FilePath == "" {
		s.writeErrorMsg(w, http.StatusBadRequest, "file_path is required")
		return
	}

	if err := s.recordings.Delete(r.Context(), req.FilePath); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.writeErrorMsg(w, http.StatusBadRequest, "File not found")
			return
		}
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorf("Could not encode response: %v", err)
	}
}

// writeError maps domain errors to HTTP statuses with a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrUnconfigured), errors.Is(err, model.ErrNotValid):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrActiveUpload):
		status = http.StatusConflict
	}

	s.writeErrorMsg(w, status, err.Error())
}

func (s *Server) writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
