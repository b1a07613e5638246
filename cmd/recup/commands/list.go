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

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List recordings.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (disk scan).
	repo, err := disk.NewRecordingRepository(disk.RecordingRepositoryConfig{
		Dir:    c.rootCmd.RecordingsPath(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	// The CLI has no long-lived uploads, an empty registry marks everything idle.
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

	// Execute list.
	recs, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("could not list recordings: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintRecordingList(recs); err != nil {
		return fmt.Errorf("could not print list: %w", err)
	}

	return nil
}
