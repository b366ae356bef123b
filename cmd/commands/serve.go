package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/tasktrack/internal/config"
	"github.com/dohr-michael/tasktrack/internal/events"
	"github.com/dohr-michael/tasktrack/internal/gateway"
	"github.com/dohr-michael/tasktrack/internal/heartbeat"
	"github.com/dohr-michael/tasktrack/internal/storage"
	"github.com/dohr-michael/tasktrack/internal/tasks"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the Task API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to",
				Value: config.DefaultHost,
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
				Value: config.DefaultPort,
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: `SQLite database path, or ":memory:"`,
			},
			&cli.StringFlag{
				Name:  "event-log",
				Usage: "Directory for the JSONL task event log",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg, os.Stderr)

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("db") {
		cfg.Store.Path = cmd.String("db")
	}
	if cmd.IsSet("event-log") {
		cfg.Events.LogDir = cmd.String("event-log")
	}

	store, err := tasks.OpenSQLStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("task store opened", "path", cfg.Store.Path)

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	if cfg.Events.LogDir != "" {
		el := storage.NewEventLogger(cfg.Events.LogDir, bus)
		defer el.Close()
		slog.Info("event log enabled", "dir", cfg.Events.LogDir)
	}

	server := gateway.NewServer(store, bus, gateway.Options{
		Host: cfg.Gateway.Host,
		Port: cfg.Gateway.Port,
		CORS: cfg.Gateway.CORS,
	})

	hb := heartbeat.NewWriter(config.HeartbeatPath(), func(ctx context.Context) (string, int, error) {
		n, err := store.Count(ctx)
		return server.Addr(), n, err
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	hb.Start()
	defer hb.Stop()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
