package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/slok/recup/internal/broadcast"
	"github.com/slok/recup/internal/model"
)

// streamEvent is the JSON shape of a progress stream event.
type streamEvent struct {
	Type string `json:"type"`
	taskResponse
}

// handleUploadProgressStream serves a server-sent events stream of progress
// for one task: a connected event, progress events (worker-driven plus a
// periodic heartbeat so the stream never goes silent), and a final closed
// event once the task is terminal.
func (s *Server) handleUploadProgressStream(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")

	sub, err := s.uploads.Subscribe(r.Context(), taskID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer s.uploads.Unsubscribe(sub)

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeErrorMsg(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeStreamEvent(w, flusher, string(ev.Type), ev.Task); err != nil {
				return
			}
			if ev.Type == broadcast.EventTypeClosed {
				return
			}

		case <-heartbeat.C:
			// No fresh event from the worker, synthesize a snapshot so the
			// client knows the stream is alive.
			task, err := s.uploads.Status(r.Context(), taskID)
			if err != nil {
				// The task was reaped from under us.
				return
			}
			if err := writeStreamEvent(w, flusher, string(broadcast.EventTypeProgress), *task); err != nil {
				return
			}
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, task model.UploadTask) error {
	data, err := json.Marshal(streamEvent{
		Type:         eventType,
		taskResponse: newTaskResponse(task),
	})
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
