// Package settings implements reading and writing the persisted application
// settings.
package settings

import (
	"context"
	"fmt"
	"net/url"

	"github.com/slok/recup/internal/log"
	"github.com/slok/recup/internal/model"
	"github.com/slok/recup/internal/storage"
)

// ServiceConfig is the configuration for the settings service.
type ServiceConfig struct {
	SettingsRepo storage.SettingsRepository
	Logger       log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.SettingsRepo == nil {
		return fmt.Errorf("settings repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Settings"})
	return nil
}

// Service handles settings business logic.
type Service struct {
	settingsRepo storage.SettingsRepository
	logger       log.Logger
}

// NewService creates a new settings service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		settingsRepo: cfg.SettingsRepo,
		logger:       cfg.Logger,
	}, nil
}

// Get returns the persisted settings.
func (s *Service) Get(ctx context.Context) (*model.Settings, error) {
	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get settings: %w", err)
	}
	return settings, nil
}

// Save validates and persists the settings. An empty upload URL is allowed,
// it unconfigures uploads.
func (s *Service) Save(ctx context.Context, settings model.Settings) error {
	if settings.UploadURL != "" {
		u, err := url.Parse(settings.UploadURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("upload URL %q is not a valid http(s) URL: %w", settings.UploadURL, model.ErrNotValid)
		}
	}

	if err := s.settingsRepo.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("could not save settings: %w", err)
	}

	s.logger.Infof("Settings saved")

	return nil
}
