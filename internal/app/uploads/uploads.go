// Package uploads implements the upload task controller: it starts upload
// workers, exposes status lookup and cancellation, and owns the worker
// lifecycle from first byte to terminal state.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/recup/internal/broadcast"
	"github.com/slok/recup/internal/log"
	"github.com/slok/recup/internal/model"
	"github.com/slok/recup/internal/registry"
	"github.com/slok/recup/internal/storage"
	"github.com/slok/recup/internal/upload"
)

// ServiceConfig is the configuration for the uploads service.
type ServiceConfig struct {
	Registry      *registry.Registry
	Broadcaster   *broadcast.Broadcaster
	Uploader      upload.Uploader
	SettingsRepo  storage.SettingsRepository
	RecordingRepo storage.RecordingRepository
	Logger        log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}
	if c.Broadcaster == nil {
		return fmt.Errorf("broadcaster is required")
	}
	if c.Uploader == nil {
		return fmt.Errorf("uploader is required")
	}
	if c.SettingsRepo == nil {
		return fmt.Errorf("settings repository is required")
	}
	if c.RecordingRepo == nil {
		return fmt.Errorf("recording repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Uploads"})
	return nil
}

// Service handles the upload task lifecycle.
type Service struct {
	registry      *registry.Registry
	broadcaster   *broadcast.Broadcaster
	uploader      upload.Uploader
	settingsRepo  storage.SettingsRepository
	recordingRepo storage.RecordingRepository
	logger        log.Logger
}

// NewService creates a new uploads service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		registry:      cfg.Registry,
		broadcaster:   cfg.Broadcaster,
		uploader:      cfg.Uploader,
		settingsRepo:  cfg.SettingsRepo,
		recordingRepo: cfg.RecordingRepo,
		logger:        cfg.Logger,
	}, nil
}

// Start validates the preconditions, registers a new task and launches its
// worker. It returns as soon as the worker is spawned.
func (s *Service) Start(ctx context.Context, sourcePath string) (taskID string, err error) {
	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return "", fmt.Errorf("could not load settings: %w", err)
	}
	if err := settings.ValidateForUpload(); err != nil {
		return "", err
	}

	rec, err := s.recordingRepo.GetRecording(ctx, sourcePath)
	if err != nil {
		return "", fmt.Errorf("could not get recording: %w", err)
	}

	task := model.UploadTask{
		ID:            ulid.Make().String(),
		SourcePath:    rec.Path,
		FileSizeBytes: rec.SizeBytes,
		Status:        model.UploadStatusStarting,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.registry.Create(ctx, task); err != nil {
		return "", fmt.Errorf("could not register task: %w", err)
	}

	// The worker must outlive the request that started it.
	go s.runWorker(context.WithoutCancel(ctx), task.ID, rec.Path, rec.SizeBytes, settings.UploadURL)

	s.logger.Infof("Started upload %s for %s (%d bytes)", task.ID, rec.Path, rec.SizeBytes)

	return task.ID, nil
}

// Status returns the current snapshot of a task.
func (s *Service) Status(ctx context.Context, taskID string) (*model.UploadTask, error) {
	task, err := s.registry.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not get task: %w", err)
	}
	return task, nil
}

// Cancel requests cooperative cancellation of a task. Idempotent, and a no-op
// on terminal tasks.
func (s *Service) Cancel(ctx context.Context, taskID string) (*model.UploadTask, error) {
	task, err := s.registry.Update(ctx, taskID, func(t *model.UploadTask) {
		t.CancelRequested = true
		if t.Status == model.UploadStatusUploading || t.Status == model.UploadStatusStarting {
			t.Status = model.UploadStatusCancelling
		}
	})
	if err != nil {
		return nil, fmt.Errorf("could not request cancellation: %w", err)
	}

	s.logger.Infof("Cancellation requested for upload %s", taskID)

	return task, nil
}

// Subscribe attaches a progress subscriber to a task.
func (s *Service) Subscribe(ctx context.Context, taskID string) (*broadcast.Subscription, error) {
	task, err := s.registry.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	sub, err := s.broadcaster.Subscribe(ctx, *task)
	if err != nil {
		return nil, fmt.Errorf("could not subscribe: %w", err)
	}

	// The task may have finished between the snapshot and the subscription,
	// in that case the closed event would never arrive: close it ourselves.
	task, err = s.registry.Get(ctx, taskID)
	if err == nil && task.Terminal() {
		s.broadcaster.Close(ctx, *task)
	}

	return sub, nil
}

// Unsubscribe detaches a progress subscriber.
func (s *Service) Unsubscribe(sub *broadcast.Subscription) {
	s.broadcaster.Unsubscribe(sub)
}

// runWorker drives one upload to a terminal state. It is the single writer of
// the task apart from the cancellation bit.
func (s *Service) runWorker(ctx context.Context, taskID, sourcePath string, fileSize int64, endpoint string) {
	logger := s.logger.WithValues(log.Kv{"task": taskID})

	// Whatever happens below, the task ends terminal and subscribers get
	// their closed event.
	defer func() {
		task, err := s.registry.Get(ctx, taskID)
		if err != nil {
			return
		}
		if !task.Terminal() {
			task, err = s.registry.Update(ctx, taskID, func(t *model.UploadTask) {
				t.Status = model.UploadStatusError
				t.Error = "upload worker aborted unexpectedly"
			})
			if err != nil {
				return
			}
		}
		s.broadcaster.Close(ctx, *task)
	}()

	task, err := s.registry.Update(ctx, taskID, func(t *model.UploadTask) {
		// Don't regress a task already marked as cancelling.
		if t.Status == model.UploadStatusStarting {
			t.Status = model.UploadStatusUploading
		}
	})
	if err != nil {
		logger.Errorf("Could not mark task as uploading: %v", err)
		return
	}
	s.broadcaster.Publish(ctx, *task)

	result, err := s.uploader.Upload(ctx, upload.Request{
		Endpoint:   endpoint,
		SourcePath: sourcePath,
		Progress: func(sent int64) {
			s.reportProgress(ctx, taskID, sent, fileSize)
		},
		Cancelled: func() bool {
			t, err := s.registry.Get(ctx, taskID)
			return err == nil && t.CancelRequested
		},
	})

	switch {
	case err == nil:
		_, uerr := s.registry.Update(ctx, taskID, func(t *model.UploadTask) {
			t.Status = model.UploadStatusCompleted
			t.Progress = 100
			t.Result = result
		})
		if uerr != nil {
			logger.Errorf("Could not mark task as completed: %v", uerr)
			return
		}
		logger.Infof("Upload completed")

		// Cleanup failures never demote a completed upload.
		if derr := s.recordingRepo.DeleteRecording(ctx, sourcePath); derr != nil {
			logger.Warningf("Could not delete uploaded recording: %v", derr)
		}

	case errors.Is(err, model.ErrCancelled):
		_, uerr := s.registry.Update(ctx, taskID, func(t *model.UploadTask) {
			t.Status = model.UploadStatusCancelled
			t.Error = "Upload cancelled by user"
		})
		if uerr != nil {
			logger.Errorf("Could not mark task as cancelled: %v", uerr)
			return
		}
		logger.Infof("Upload cancelled")

	default:
		_, uerr := s.registry.Update(ctx, taskID, func(t *model.UploadTask) {
			t.Status = model.UploadStatusError
			t.Error = err.Error()
		})
		if uerr != nil {
			logger.Errorf("Could not mark task as failed: %v", uerr)
			return
		}
		logger.Warningf("Upload failed: %v", err)
	}
}

func (s *Service) reportProgress(ctx context.Context, taskID string, sent, total int64) {
	pct := 100
	if total > 0 {
		pct = int(sent * 100 / total)
		if pct > 100 {
			pct = 100
		}
	}

	task, err := s.registry.Update(ctx, taskID, func(t *model.UploadTask) {
		t.Progress = pct
	})
	if err != nil {
		return
	}
	s.broadcaster.Publish(ctx, *task)
}
