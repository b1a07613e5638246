package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/recup/internal/app/uploads"
	"github.com/slok/recup/internal/broadcast"
	"github.com/slok/recup/internal/model"
	"github.com/slok/recup/internal/printer"
	"github.com/slok/recup/internal/registry"
	"github.com/slok/recup/internal/storage/disk"
	"github.com/slok/recup/internal/storage/jsonfile"
	"github.com/slok/recup/internal/upload"
)

type UploadCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path   string
	format string
}

// NewUploadCommand returns the upload command.
func NewUploadCommand(rootCmd *RootCommand, app *kingpin.Application) *UploadCommand {
	c := &UploadCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("upload", "Upload a recording to the configured endpoint.")
	c.Cmd.Arg("path", "Path of the recording file.").Required().StringVar(&c.path)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c UploadCommand) Name() string { return c.Cmd.FullCommand() }

func (c UploadCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage.
	settingsRepo, err := jsonfile.NewSettingsRepository(jsonfile.SettingsRepositoryConfig{
		Path:   c.rootCmd.SettingsPath(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create settings repository: %w", err)
	}

	recordingRepo, err := disk.NewRecordingRepository(disk.RecordingRepositoryConfig{
		Dir:    filepath.Dir(c.path),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create recording repository: %w", err)
	}

	reg, err := registry.New(registry.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create task registry: %w", err)
	}

	bc, err := broadcast.New(broadcast.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create broadcaster: %w", err)
	}

	uploader, err := upload.NewClient(upload.ClientConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create upload client: %w", err)
	}

	// Create uploads service.
	svc, err := uploads.NewService(uploads.ServiceConfig{
		Registry:      reg,
		Broadcaster:   bc,
		Uploader:      uploader,
		SettingsRepo:  settingsRepo,
		RecordingRepo: recordingRepo,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Start the upload and follow its progress until it ends.
	taskID, err := svc.Start(ctx, c.path)
	if err != nil {
		return fmt.Errorf("could not start upload: %w", err)
	}

	sub, err := svc.Subscribe(ctx, taskID)
	if err != nil {
		return fmt.Errorf("could not follow upload: %w", err)
	}
	defer svc.Unsubscribe(sub)

	name := filepath.Base(c.path)
	for ev := range sub.C() {
		switch ev.Type {
		case broadcast.EventTypeProgress:
			fmt.Fprintf(c.rootCmd.Stderr, "\rUploading %s... %d%%", name, ev.Task.Progress)
		case broadcast.EventTypeClosed:
			fmt.Fprintln(c.rootCmd.Stderr)
		}
	}

	task, err := svc.Status(ctx, taskID)
	if err != nil {
		return fmt.Errorf("could not get upload status: %w", err)
	}

	// Print the final task snapshot.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}
	if err := p.PrintTask(*task); err != nil {
		return fmt.Errorf("could not print upload status: %w", err)
	}

	if task.Status != model.UploadStatusCompleted {
		return fmt.Errorf("upload ended as %s: %s", task.Status, task.Error)
	}

	return nil
}
