package model

import (
	"time"
)

// UploadStatus represents the status of an upload task.
type UploadStatus string

const (
	// UploadStatusStarting indicates the worker has not begun streaming yet.
	UploadStatusStarting UploadStatus = "starting"
	// UploadStatusUploading indicates the file is being streamed to the endpoint.
	UploadStatusUploading UploadStatus = "uploading"
	// UploadStatusCancelling indicates cancellation was requested but the
	// in-flight transfer has not observed it yet.
	UploadStatusCancelling UploadStatus = "cancelling"
	// UploadStatusCompleted indicates the endpoint accepted the file.
	UploadStatusCompleted UploadStatus = "completed"
	// UploadStatusError indicates the transfer failed.
	UploadStatusError UploadStatus = "error"
	// UploadStatusCancelled indicates the transfer was aborted by the user.
	UploadStatusCancelled UploadStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s UploadStatus) Terminal() bool {
	switch s {
	case UploadStatusCompleted, UploadStatusError, UploadStatusCancelled:
		return true
	}
	return false
}

// UploadTask represents one upload attempt of a local recording file.
//
// A task is mutated only through the registry so that every reader gets a
// consistent snapshot: the struct itself holds plain values and is safe to
// copy.
type UploadTask struct {
	ID            string
	SourcePath    string
	FileSizeBytes int64
	Status        UploadStatus
	// Progress is the percentage of bytes sent, in [0, 100]. Monotonically
	// non-decreasing until the task is terminal.
	Progress        int
	CancelRequested bool
	Error           string
	// Result is the parsed endpoint response, present only on completion.
	Result     map[string]interface{}
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// Terminal reports whether the task reached a terminal status.
func (t UploadTask) Terminal() bool { return t.Status.Terminal() }
