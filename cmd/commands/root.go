package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/tasktrack/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasktrack",
		Usage: "A small task tracker: REST server, terminal UI and CLI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewServeCommand(),
			NewTUICommand(),
			NewTasksCommand(),
			NewStatusCommand(),
		},
	}
}
