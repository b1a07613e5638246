package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/recup/internal/app/recordings"
	"github.com/slok/recup/internal/printer"
	"github.com/slok/recup/internal/registry"
	"github.com/slok/recup/internal/storage/disk"
)

type RemoveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path string
}

// NewRemoveCommand returns the remove command.
func NewRemoveCommand(rootCmd *RootCommand, app *kingpin.Application) *RemoveCommand {
	c := &RemoveCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rm", "Delete a recording file.")
	c.Cmd.Arg("path", "Path of the recording file.").Required().StringVar(&c.path)

	return c
}

func (c RemoveCommand) Name() string { return c.Cmd.FullCommand() }

func (c RemoveCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (disk scan).
	repo, err := disk.NewRecordingRepository(disk.RecordingRepositoryConfig{
		Dir:    c.rootCmd.RecordingsPath(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	reg, err := registry.New(registry.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create task registry: %w", err)
	}

	// Create recordings service.
	svc, err := recordings.NewService(recordings.ServiceConfig{
		RecordingRepo: repo,
		Registry:      reg,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute delete.
	if err := svc.Delete(ctx, c.path); err != nil {
		return fmt.Errorf("could not delete recording: %w", err)
	}

	// Print success message.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Deleted recording: %s", c.path)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
