package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/crackenhq/cracken/internal/sweeper"
)

// NewSweepCommand returns the sweep subcommand.
func NewSweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Flag overdue tasks and skip past inactive assignees",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "daemon",
				Usage: "Keep running on the configured cron schedule",
			},
		},
		Action: runSweep,
	}
}

func runSweep(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sw, err := sweeper.New(sweeper.Config{
		Source:   a.store,
		Engine:   a.engine,
		Bus:      a.bus,
		CronSpec: a.cfg.Sweeper.Cron,
		AutoSkip: a.cfg.Sweeper.AutoSkip,
	})
	if err != nil {
		return fmt.Errorf("configure sweeper: %w", err)
	}

	if !cmd.Bool("daemon") {
		return sw.Sweep(ctx, time.Now())
	}
	if !a.cfg.Sweeper.Enabled {
		return fmt.Errorf("sweeper is disabled in config; set sweeper.enabled to run as a daemon")
	}

	sw.Start()
	defer sw.Stop()
	<-ctx.Done()
	return nil
}
