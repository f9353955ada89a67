package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/crackenhq/cracken/internal/rotation"
)

// NewUsersCommand returns the users subcommand.
func NewUsersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage user accounts",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register a user",
				ArgsUsage: "<email> <name>",
				Action:    runUsersAdd,
			},
			{
				Name:   "list",
				Usage:  "List all users",
				Action: runUsersList,
			},
		},
		DefaultCommand: "list",
	}
}

func runUsersAdd(ctx context.Context, cmd *cli.Command) error {
	email := cmd.Args().Get(0)
	name := cmd.Args().Get(1)
	if email == "" || name == "" {
		return fmt.Errorf("usage: cracken users add <email> <name>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	u := &rotation.User{Email: email, Name: name}
	if err := a.store.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Printf("User %s registered as %s.\n", email, u.ID)
	return nil
}

func runUsersList(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Email, u.Name)
	}
	return w.Flush()
}
