// Package commands wires the cracken CLI to the rotation engine.
package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/crackenhq/cracken/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "cracken",
		Usage: "Household chore rotation tracker",
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
			NewUsersCommand(),
			NewGroupsCommand(),
			NewTasksCommand(),
			NewReportCommand(),
			NewSweepCommand(),
			NewSeedCommand(),
		},
	}
}
