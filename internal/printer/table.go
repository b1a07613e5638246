package printer

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/slok/recup/internal/model"
)

// TablePrinter prints recording and upload information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintRecordingList prints recordings in a table format.
func (t *TablePrinter) PrintRecordingList(recordings []model.Recording) error {
	if len(recordings) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "FILE\tSIZE\tDURATION\tMODIFIED\tSTATUS")

	// Print rows.
	for _, r := range recordings {
		duration := "-"
		if r.Meta != nil {
			duration = r.Meta.Duration.String()
		}
		status := ""
		if r.Active {
			status = "uploading"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			filepath.Base(r.Path),
			humanize.IBytes(uint64(r.SizeBytes)),
			duration,
			TimeAgo(r.ModifiedAt),
			status,
		)
	}

	return nil
}

// PrintTask prints a detailed upload task snapshot.
func (t *TablePrinter) PrintTask(task model.UploadTask) error {
	fmt.Fprintf(t.writer, "ID:        %s\n", task.ID)
	fmt.Fprintf(t.writer, "File:      %s\n", task.SourcePath)
	fmt.Fprintf(t.writer, "Size:      %s\n", humanize.IBytes(uint64(task.FileSizeBytes)))
	fmt.Fprintf(t.writer, "Status:    %s\n", task.Status)
	fmt.Fprintf(t.writer, "Progress:  %d%%\n", task.Progress)
	fmt.Fprintf(t.writer, "Created:   %s\n", FormatTimestamp(task.CreatedAt))

	if task.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:  %s\n", FormatTimestamp(*task.FinishedAt))
	}

	if task.Error != "" {
		fmt.Fprintf(t.writer, "Error:     %s\n", task.Error)
	}

	return nil
}

// PrintSettings prints the settings.
func (t *TablePrinter) PrintSettings(settings model.Settings) error {
	url := settings.UploadURL
	if url == "" {
		url = "(not configured)"
	}
	fmt.Fprintf(t.writer, "Upload URL:  %s\n", url)
	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
