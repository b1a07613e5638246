// Package recordings implements listing and direct deletion of locally
// recorded video files.
package recordings

import (
	"context"
	"fmt"

	"github.com/slok/recup/internal/log"
	"github.com/slok/recup/internal/model"
	"github.com/slok/recup/internal/registry"
	"github.com/slok/recup/internal/storage"
)

// ServiceConfig is the configuration for the recordings service.
type ServiceConfig struct {
	RecordingRepo storage.RecordingRepository
	Registry      *registry.Registry
	Logger        log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.RecordingRepo == nil {
		return fmt.Errorf("recording repository is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Recordings"})
	return nil
}

// Service handles recordings listing and deletion business logic.
type Service struct {
	recordingRepo storage.RecordingRepository
	registry      *registry.Registry
	logger        log.Logger
}

// NewService creates a new recordings service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		recordingRepo: cfg.RecordingRepo,
		registry:      cfg.Registry,
		logger:        cfg.Logger,
	}, nil
}

// List returns the recordings, newest first, marking files that are part of a
// non-terminal upload task as active.
func (s *Service) List(ctx context.Context) ([]model.Recording, error) {
	recs, err := s.recordingRepo.ListRecordings(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list recordings: %w", err)
	}

	active, err := s.activePaths(ctx)
	if err != nil {
		return nil, err
	}

	for i := range recs {
		recs[i].Active = active[recs[i].Path]
	}

	return recs, nil
}

// Delete removes a recording that is not under active upload, using the
// durable delete path.
func (s *Service) Delete(ctx context.Context, path string) error {
	active, err := s.activePaths(ctx)
	if err != nil {
		return err
	}
	if active[path] {
		return fmt.Errorf("can't delete %q: %w", path, model.ErrActiveUpload)
	}

	if err := s.recordingRepo.DeleteRecording(ctx, path); err != nil {
		return fmt.Errorf("could not delete recording: %w", err)
	}

	return nil
}

func (s *Service) activePaths(ctx context.Context) (map[string]bool, error) {
	tasks, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list upload tasks: %w", err)
	}

	active := map[string]bool{}
	for _, t := range tasks {
		if !t.Terminal() {
			active[t.SourcePath] = true
		}
	}

	return active, nil
}
