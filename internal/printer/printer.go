package printer

import "github.com/slok/recup/internal/model"

// Printer knows how to print recording and upload information in different formats.
type Printer interface {
	PrintRecordingList(recordings []model.Recording) error
	PrintTask(task model.UploadTask) error
	PrintSettings(settings model.Settings) error
	PrintMessage(msg string) error
}
