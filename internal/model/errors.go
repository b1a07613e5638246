package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrUnconfigured is returned when the upload endpoint has not been configured.
	ErrUnconfigured = errors.New("upload URL not configured")
	// ErrCancelled is returned when an upload is aborted by a user cancellation.
	ErrCancelled = errors.New("cancelled")
	// ErrActiveUpload is returned when an operation targets a recording that
	// is part of a non-terminal upload task.
	ErrActiveUpload = errors.New("recording is being uploaded")
)
