package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/recup/internal/app/settings"
	"github.com/slok/recup/internal/model"
	"github.com/slok/recup/internal/printer"
	"github.com/slok/recup/internal/storage/jsonfile"
)

// NewSettingsCommand returns the parent settings command.
func NewSettingsCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("settings", "Manage settings.")
}

func newSettingsService(rootCmd *RootCommand) (*settings.Service, error) {
	repo, err := jsonfile.NewSettingsRepository(jsonfile.SettingsRepositoryConfig{
		Path:   rootCmd.SettingsPath(),
		Logger: rootCmd.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create settings repository: %w", err)
	}

	svc, err := settings.NewService(settings.ServiceConfig{
		SettingsRepo: repo,
		Logger:       rootCmd.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	return svc, nil
}

type SettingsGetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewSettingsGetCommand returns the settings get command.
func NewSettingsGetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *SettingsGetCommand {
	c := &SettingsGetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("get", "Show the current settings.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c SettingsGetCommand) Name() string { return c.Cmd.FullCommand() }

func (c SettingsGetCommand) Run(ctx context.Context) error {
	svc, err := newSettingsService(c.rootCmd)
	if err != nil {
		return err
	}

	current, err := svc.Get(ctx)
	if err != nil {
		return fmt.Errorf("could not get settings: %w", err)
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintSettings(*current); err != nil {
		return fmt.Errorf("could not print settings: %w", err)
	}

	return nil
}

type SettingsSetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	uploadURL string
}

// NewSettingsSetCommand returns the settings set command.
func NewSettingsSetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *SettingsSetCommand {
	c := &SettingsSetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("set", "Update the settings.")
	c.Cmd.Arg("upload-url", "Remote upload endpoint URL (empty disables uploads).").StringVar(&c.uploadURL)

	return c
}

func (c SettingsSetCommand) Name() string { return c.Cmd.FullCommand() }

func (c SettingsSetCommand) Run(ctx context.Context) error {
	svc, err := newSettingsService(c.rootCmd)
	if err != nil {
		return err
	}

	if err := svc.Save(ctx, model.Settings{UploadURL: c.uploadURL}); err != nil {
		return fmt.Errorf("could not save settings: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage("Settings saved"); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
