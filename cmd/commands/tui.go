package commands

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/tasktrack/clients/api"
	"github.com/dohr-michael/tasktrack/clients/state"
	"github.com/dohr-michael/tasktrack/clients/tui"
	wsclient "github.com/dohr-michael/tasktrack/clients/ws"
	"github.com/dohr-michael/tasktrack/internal/config"
)

// NewTUICommand returns the tui subcommand.
func NewTUICommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive task view",
		Flags: []cli.Flag{
			urlFlag(),
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Follow changes made by other clients through the event feed",
			},
		},
		Action: runTUI,
	}
}

func urlFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "url",
		Usage: "Task API base URL (defaults to client.url from config)",
	}
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The terminal belongs to the program; logs go to a file.
	logFile, err := openLogFile(config.LogPath())
	if err != nil {
		return err
	}
	defer logFile.Close()
	setupLogging(cmd, cfg, logFile)

	url := serverURL(cmd, cfg)
	store := state.New(api.NewClient(url, api.WithTimeout(cfg.Client.Timeout.Duration())))

	opts := tui.Options{Context: ctx, Server: url}
	if cmd.Bool("watch") {
		opts.FeedURL = wsclient.FeedURL(url)
	}

	p := tea.NewProgram(tui.NewApp(store, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := tui.Bridge(p, store)
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
