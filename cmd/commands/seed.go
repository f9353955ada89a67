package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/crackenhq/cracken/internal/seed"
)

// NewSeedCommand returns the seed subcommand.
func NewSeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Bulk-load groups, members and tasks",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Validate a seed file and import it",
				ArgsUsage: "<file>",
				Action:    runSeedImport,
			},
			{
				Name:      "check",
				Usage:     "Validate a seed file without writing anything",
				ArgsUsage: "<file>",
				Action:    runSeedCheck,
			},
		},
	}
}

func runSeedImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: cracken seed import <file>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sum, err := seed.Import(ctx, a.store, data)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d groups, %d members, %d tasks.\n", sum.Groups, sum.Members, sum.Tasks)
	return nil
}

func runSeedCheck(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: cracken seed check <file>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	if err := seed.Validate(data); err != nil {
		return err
	}
	fmt.Println("Seed file is valid.")
	return nil
}
