package model

import "fmt"

// Settings is the persisted application configuration.
type Settings struct {
	UploadURL string
}

// ValidateForUpload checks the settings allow starting an upload.
func (s Settings) ValidateForUpload() error {
	if s.UploadURL == "" {
		return fmt.Errorf("can't upload: %w", ErrUnconfigured)
	}
	return nil
}
