package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slok/recup/internal/log"
	"github.com/slok/recup/internal/model"
)

// SettingsRepositoryConfig is the configuration for the JSON file settings repository.
type SettingsRepositoryConfig struct {
	Path   string
	Logger log.Logger
}

func (c *SettingsRepositoryConfig) defaults() error {
	if c.Path == "" {
		return fmt.Errorf("settings path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.JSONFile"})
	return nil
}

// SettingsRepository persists settings as a single JSON object on disk.
type SettingsRepository struct {
	path   string
	logger log.Logger
}

// NewSettingsRepository creates a new JSON file settings repository.
func NewSettingsRepository(cfg SettingsRepositoryConfig) (*SettingsRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &SettingsRepository{
		path:   cfg.Path,
		logger: cfg.Logger,
	}, nil
}

// settingsFile is the on-disk JSON representation.
type settingsFile struct {
	UploadURL string `json:"upload_url"`
}

// GetSettings loads the persisted settings. A missing file is not an error,
// it yields the default (empty) settings.
func (r *SettingsRepository) GetSettings(ctx context.Context) (*model.Settings, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Settings{}, nil
		}
		return nil, fmt.Errorf("could not read settings file: %w", err)
	}

	var sf settingsFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("could not parse settings file: %w", err)
	}

	return &model.Settings{UploadURL: sf.UploadURL}, nil
}

// SaveSettings persists the settings, creating the parent directory if needed.
func (r *SettingsRepository) SaveSettings(ctx context.Context, s model.Settings) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("could not create settings directory: %w", err)
	}

	data, err := json.Marshal(settingsFile{UploadURL: s.UploadURL})
	if err != nil {
		return fmt.Errorf("could not marshal settings: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("could not write settings file: %w", err)
	}

	r.logger.Debugf("Saved settings to %s", r.path)

	return nil
}
