package model

import (
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// Recording represents a locally recorded video file.
type Recording struct {
	Path       string
	SizeBytes  int64
	ModifiedAt time.Time
	// Meta is best-effort metadata parsed from the filename, nil when the
	// filename doesn't follow a known recorder pattern.
	Meta *RecordingMeta
	// Active is true while the file is part of a non-terminal upload task.
	Active bool
}

// RecordingMeta is metadata encoded in a recording filename.
type RecordingMeta struct {
	Timestamp time.Time
	Duration  time.Duration
}

// Recorder variants encode "<unix-ts>d<duration>.mp4" or
// "<unix-ts>-<duration>.mp4". Neither format is authoritative.
var recordingNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d+)d([\d.]+)\.mp4$`),
	regexp.MustCompile(`^(\d+)-([\d.]+)\.mp4$`),
}

// ParseRecordingFilename extracts metadata from a recording filename.
// Returns nil if the name doesn't match any known pattern.
func ParseRecordingFilename(path string) *RecordingMeta {
	base := filepath.Base(path)
	for _, re := range recordingNamePatterns {
		m := re.FindStringSubmatch(base)
		if m == nil {
			continue
		}

		ts, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		seconds, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}

		return &RecordingMeta{
			Timestamp: time.Unix(ts, 0).UTC(),
			Duration:  time.Duration(seconds * float64(time.Second)),
		}
	}

	return nil
}
