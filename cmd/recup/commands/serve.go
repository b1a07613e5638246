package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/slok/recup/internal/app/recordings"
	"github.com/slok/recup/internal/app/settings"
	"github.com/slok/recup/internal/app/uploads"
	"github.com/slok/recup/internal/broadcast"
	"github.com/slok/recup/internal/conventions"
	"github.com/slok/recup/internal/registry"
	"github.com/slok/recup/internal/server"
	"github.com/slok/recup/internal/storage/disk"
	"github.com/slok/recup/internal/storage/jsonfile"
	"github.com/slok/recup/internal/upload"
)

type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddr    string
	recordingsDir string
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("serve", "Run the local HTTP API server.")
	c.Cmd.Flag("listen", "Address to listen on.").Default(conventions.DefaultListenAddr).StringVar(&c.listenAddr)
	c.Cmd.Flag("recordings-dir", "Directory scanned for recordings (defaults to the data directory).").StringVar(&c.recordingsDir)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	recordingsDir := c.recordingsDir
	if recordingsDir == "" {
		recordingsDir = c.rootCmd.RecordingsPath()
	}

	// Initialize storage.
	settingsRepo, err := jsonfile.NewSettingsRepository(jsonfile.SettingsRepositoryConfig{
		Path:   c.rootCmd.SettingsPath(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create settings repository: %w", err)
	}

	recordingRepo, err := disk.NewRecordingRepository(disk.RecordingRepositoryConfig{
		Dir:    recordingsDir,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create recording repository: %w", err)
	}

	// Task registry and progress broadcaster.
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

	// Application services.
	uploadsSvc, err := uploads.NewService(uploads.ServiceConfig{
		Registry:      reg,
		Broadcaster:   bc,
		Uploader:      uploader,
		SettingsRepo:  settingsRepo,
		RecordingRepo: recordingRepo,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create uploads service: %w", err)
	}

	recordingsSvc, err := recordings.NewService(recordings.ServiceConfig{
		RecordingRepo: recordingRepo,
		Registry:      reg,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create recordings service: %w", err)
	}

	settingsSvc, err := settings.NewService(settings.ServiceConfig{
		SettingsRepo: settingsRepo,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create settings service: %w", err)
	}

	srv, err := server.New(server.Config{
		Addr:       c.listenAddr,
		Uploads:    uploadsSvc,
		Recordings: recordingsSvc,
		Settings:   settingsSvc,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	var g run.Group

	// HTTP server.
	{
		g.Add(
			func() error {
				return srv.ListenAndServe()
			},
			func(_ error) {
				_ = srv.Shutdown(context.Background())
			},
		)
	}

	// Task registry janitor.
	{
		janitorCtx, janitorCancel := context.WithCancel(context.Background())

		g.Add(
			func() error {
				return reg.Run(janitorCtx)
			},
			func(_ error) {
				janitorCancel()
			},
		)
	}

	// Context cancellation (from parent signal handling).
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				<-ctx.Done()
				return ctx.Err()
			},
			func(_ error) {
				cancel()
			},
		)
	}

	logger.Infof("Serving recordings from %s", recordingsDir)
	return g.Run()
}
