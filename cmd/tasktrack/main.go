package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dohr-michael/tasktrack/cmd/commands"
	"github.com/dohr-michael/tasktrack/internal/config"
)

func main() {
	// Load .env before anything else so ${{ .Env.X }} templates in the config resolve.
	if err := config.LoadDotenv(config.DotenvPath()); err != nil {
		slog.Warn("load dotenv", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCommand().Run(ctx, os.Args); err != nil {
		slog.Error("tasktrack", "error", err)
		os.Exit(1)
	}
}
