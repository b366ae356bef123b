package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/tasktrack/internal/config"
)

// loadConfig reads the --config file, falling back to defaults when it is missing.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !found {
		slog.Debug("no config file, using defaults", "path", path)
	}
	return cfg, nil
}

// setupLogging installs the default slog handler writing to w.
func setupLogging(cmd *cli.Command, cfg *config.Config, w io.Writer) {
	level := cfg.Log.SlogLevel()
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// openLogFile opens path for appending, creating its directory.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// serverURL resolves the Task API base URL: --url wins over the config.
func serverURL(cmd *cli.Command, cfg *config.Config) string {
	if cmd.IsSet("url") {
		return cmd.String("url")
	}
	return cfg.Client.URL
}
