package storage

import (
	"context"

	"github.com/slok/recup/internal/model"
)

// SettingsRepository is the interface for settings persistence.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (*model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error
}

// RecordingRepository is the interface for accessing recorded files.
type RecordingRepository interface {
	ListRecordings(ctx context.Context) ([]model.Recording, error)
	GetRecording(ctx context.Context, path string) (*model.Recording, error)
	DeleteRecording(ctx context.Context, path string) error
}
