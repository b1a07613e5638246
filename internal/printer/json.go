package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/recup/internal/model"
)

// JSONPrinter prints recording and upload information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// recordingItem represents a recording in the list output.
type recordingItem struct {
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	Timestamp  *int64    `json:"timestamp,omitempty"`
	DurationS  *float64  `json:"duration_seconds,omitempty"`
	Active     bool      `json:"active"`
}

// taskOutput represents the full upload task output.
type taskOutput struct {
	ID         string                 `json:"id"`
	File       string                 `json:"file"`
	SizeBytes  int64                  `json:"size_bytes"`
	Status     string                 `json:"status"`
	Progress   int                    `json:"progress"`
	Error      string                 `json:"error,omitempty"`
	Result     map[string]interface{} `json:"result,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

// settingsOutput represents the settings output.
type settingsOutput struct {
	UploadURL string `json:"upload_url"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintRecordingList prints recordings in JSON format.
func (j *JSONPrinter) PrintRecordingList(recordings []model.Recording) error {
	items := make([]recordingItem, len(recordings))
	for i, r := range recordings {
		items[i] = recordingItem{
			Path:       r.Path,
			SizeBytes:  r.SizeBytes,
			ModifiedAt: r.ModifiedAt.UTC(),
			Active:     r.Active,
		}
		if r.Meta != nil {
			ts := r.Meta.Timestamp.Unix()
			dur := r.Meta.Duration.Seconds()
			items[i].Timestamp = &ts
			items[i].DurationS = &dur
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintTask prints a detailed upload task snapshot in JSON format.
func (j *JSONPrinter) PrintTask(task model.UploadTask) error {
	output := taskOutput{
		ID:        task.ID,
		File:      task.SourcePath,
		SizeBytes: task.FileSizeBytes,
		Status:    string(task.Status),
		Progress:  task.Progress,
		Error:     task.Error,
		Result:    task.Result,
		CreatedAt: task.CreatedAt.UTC(),
	}

	if task.FinishedAt != nil {
		utcTime := task.FinishedAt.UTC()
		output.FinishedAt = &utcTime
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintSettings prints the settings in JSON format.
func (j *JSONPrinter) PrintSettings(settings model.Settings) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(settingsOutput{UploadURL: settings.UploadURL})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
