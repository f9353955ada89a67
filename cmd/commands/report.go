package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
)

// NewReportCommand returns the report subcommand.
func NewReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Reports over completion history",
		Commands: []*cli.Command{
			{
				Name:      "fairness",
				Usage:     "Completion counts per member, least-contributing first",
				ArgsUsage: "<group_id>",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "window",
						Usage: "Only count completions within this window (e.g. 168h); all time when unset",
					},
				},
				Action: runReportFairness,
			},
		},
		DefaultCommand: "fairness",
	}
}

func runReportFairness(ctx context.Context, cmd *cli.Command) error {
	groupID := cmd.Args().First()
	if groupID == "" {
		return fmt.Errorf("usage: cracken report fairness <group_id> [--window 168h]")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	since := time.Unix(0, 0)
	if w := cmd.Duration("window"); w > 0 {
		since = time.Now().Add(-w)
	}

	report, err := a.engine.FairnessReport(ctx, groupID, since)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tEMAIL\tCOMPLETIONS\tACTIVE")
	for _, mc := range report {
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\n", mc.Member.Name, mc.Member.Email, mc.Count, mc.Member.Active)
	}
	return w.Flush()
}
