package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/slok/recup/internal/log"
	"github.com/slok/recup/internal/model"
	"github.com/slok/recup/internal/utils/file"
)

// RecordingRepositoryConfig is the configuration for the disk recording repository.
type RecordingRepositoryConfig struct {
	// Dir is the directory scanned for recordings.
	Dir    string
	Logger log.Logger
}

func (c *RecordingRepositoryConfig) defaults() error {
	if c.Dir == "" {
		return fmt.Errorf("recordings directory is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Disk"})
	return nil
}

// RecordingRepository reads recorded video files from the local filesystem.
type RecordingRepository struct {
	dir    string
	logger log.Logger
}

// NewRecordingRepository creates a new disk recording repository.
func NewRecordingRepository(cfg RecordingRepositoryConfig) (*RecordingRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &RecordingRepository{
		dir:    cfg.Dir,
		logger: cfg.Logger,
	}, nil
}

// ListRecordings returns the recordings in the scanned directory, newest
// first. A missing directory yields an empty list.
func (r *RecordingRepository) ListRecordings(ctx context.Context) ([]model.Recording, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Recording{}, nil
		}
		return nil, fmt.Errorf("could not read recordings directory: %w", err)
	}

	recordings := make([]model.Recording, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp4") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// The file disappeared between readdir and stat.
			r.logger.Debugf("Skipping %s: %v", entry.Name(), err)
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		recordings = append(recordings, model.Recording{
			Path:       path,
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
			Meta:       model.ParseRecordingFilename(path),
		})
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].ModifiedAt.After(recordings[j].ModifiedAt)
	})

	return recordings, nil
}

// GetRecording stats a single recording file by path.
func (r *RecordingRepository) GetRecording(ctx context.Context, path string) (*model.Recording, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("recording %q: %w", path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not stat recording: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("recording %q is a directory: %w", path, model.ErrNotValid)
	}

	return &model.Recording{
		Path:       path,
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime(),
		Meta:       model.ParseRecordingFilename(path),
	}, nil
}

// DeleteRecording removes a recording file with a durable delete, so the
// removal persists on removable storage.
func (r *RecordingRepository) DeleteRecording(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("recording %q: %w", path, model.ErrNotFound)
		}
		return fmt.Errorf("could not stat recording: %w", err)
	}

	if err := file.RemoveDurable(path); err != nil {
		return fmt.Errorf("could not delete recording: %w", err)
	}

	r.logger.Infof("Deleted recording %s", path)

	return nil
}
