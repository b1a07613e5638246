package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/recup/internal/app/settings"
	"github.com/slok/recup/internal/model"
	"github.com/slok/recup/internal/storage/storagemock"
)

func newService(t *testing.T) (*settings.Service, *storagemock.MockSettingsRepository) {
	t.Helper()
	repo := &storagemock.MockSettingsRepository{}
	svc, err := settings.NewService(settings.ServiceConfig{SettingsRepo: repo})
	require.NoError(t, err)
	return svc, repo
}

func TestGet(t *testing.T) {
	svc, repo := newService(t)
	repo.On("GetSettings", mock.Anything).
		Return(&model.Settings{UploadURL: "http://example.com/up"}, nil)

	got, err := svc.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "http://example.com/up", got.UploadURL)
}

func TestSave(t *testing.T) {
	tests := map[string]struct {
		settings model.Settings
		expSave  bool
		expErr   error
	}{
		"valid http URL": {
			settings: model.Settings{UploadURL: "http://example.com/upload"},
			expSave:  true,
		},
		"valid https URL with query": {
			settings: model.Settings{UploadURL: "https://example.com/upload?command=replacerecordings"},
			expSave:  true,
		},
		"empty URL unconfigures uploads": {
			settings: model.Settings{},
			expSave:  true,
		},
		"not a URL": {
			settings: model.Settings{UploadURL: "::not a url::"},
			expErr:   model.ErrNotValid,
		},
		"unsupported scheme": {
			settings: model.Settings{UploadURL: "ftp://example.com/upload"},
			expErr:   model.ErrNotValid,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			svc, repo := newService(t)
			repo.On("SaveSettings", mock.Anything, tt.settings).Return(nil)

			err := svc.Save(context.Background(), tt.settings)

			if tt.expErr != nil {
				assert.ErrorIs(t, err, tt.expErr)
				repo.AssertNotCalled(t, "SaveSettings", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}
