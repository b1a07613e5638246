// Package server exposes the local HTTP API consumed by the desktop UI:
// recordings listing, settings, and upload orchestration with live progress
// streaming.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/slok/recup/internal/app/recordings"
	"github.com/slok/recup/internal/app/settings"
	"github.com/slok/recup/internal/app/uploads"
	"github.com/slok/recup/internal/log"
)

// Config is the configuration for the server.
type Config struct {
	// Addr is the address to listen on (e.g., "127.0.0.1:5000").
	Addr       string
	Uploads    *uploads.Service
	Recordings *recordings.Service
	Settings   *settings.Service
	// Heartbeat is the progress stream keep-alive cadence.
	Heartbeat time.Duration
	Logger    log.Logger
}

func (c *Config) defaults() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Uploads == nil {
		return fmt.Errorf("uploads service is required")
	}
	if c.Recordings == nil {
		return fmt.Errorf("recordings service is required")
	}
	if c.Settings == nil {
		return fmt.Errorf("settings service is required")
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 200 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "server.Server"})
	return nil
}

// Server is the local HTTP API server.
type Server struct {
	addr       string
	uploads    *uploads.Service
	recordings *recordings.Service
	settings   *settings.Service
	heartbeat  time.Duration
	logger     log.Logger
	httpServer *http.Server
}

// New creates a new server.
func New(cfg Config) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		addr:       cfg.Addr,
		uploads:    cfg.Uploads,
		recordings: cfg.Recordings,
		settings:   cfg.Settings,
		heartbeat:  cfg.Heartbeat,
		logger:     cfg.Logger,
	}
	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.Handler(),
	}

	return s, nil
}

// Handler returns the HTTP handler with all the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleListRecordings)
	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("POST /settings", s.handleSaveSettings)
	mux.HandleFunc("POST /upload-recording", s.handleStartUpload)
	mux.HandleFunc("GET /upload-progress/{id}", s.handleUploadProgress)
	mux.HandleFunc("POST /cancel-upload/{id}", s.handleCancelUpload)
	mux.HandleFunc("GET /upload-progress-stream/{id}", s.handleUploadProgressStream)
	mux.HandleFunc("POST /delete-recording", s.handleDeleteRecording)

	return mux
}

// ListenAndServe starts the server. Blocks until Shutdown is called or the
// listener fails.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("Listening on %s", s.addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
