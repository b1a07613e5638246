// Package uploadmock contains a testify mock for the upload.Uploader interface.
package uploadmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/recup/internal/upload"
)

// MockUploader is a mock implementation of upload.Uploader.
type MockUploader struct {
	mock.Mock
}

// Upload mock.
func (m *MockUploader) Upload(ctx context.Context, req upload.Request) (map[string]interface{}, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(map[string]interface{})
	return res, args.Error(1)
}
