// Package storagemock contains testify mocks for the storage repositories.
package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/recup/internal/model"
)

// MockSettingsRepository is a mock implementation of storage.SettingsRepository.
type MockSettingsRepository struct {
	mock.Mock
}

// GetSettings mock.
func (m *MockSettingsRepository) GetSettings(ctx context.Context) (*model.Settings, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*model.Settings)
	return s, args.Error(1)
}

// SaveSettings mock.
func (m *MockSettingsRepository) SaveSettings(ctx context.Context, s model.Settings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// MockRecordingRepository is a mock implementation of storage.RecordingRepository.
type MockRecordingRepository struct {
	mock.Mock
}

// ListRecordings mock.
func (m *MockRecordingRepository) ListRecordings(ctx context.Context) ([]model.Recording, error) {
	args := m.Called(ctx)
	rs, _ := args.Get(0).([]model.Recording)
	return rs, args.Error(1)
}

// GetRecording mock.
func (m *MockRecordingRepository) GetRecording(ctx context.Context, path string) (*model.Recording, error) {
	args := m.Called(ctx, path)
	r, _ := args.Get(0).(*model.Recording)
	return r, args.Error(1)
}

// DeleteRecording mock.
func (m *MockRecordingRepository) DeleteRecording(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}
