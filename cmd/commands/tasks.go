package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/crackenhq/cracken/internal/cadence"
	"github.com/crackenhq/cracken/internal/rotation"
)

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage chores and their rotations",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a task in a group",
				ArgsUsage: "<group_id> <name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "emoji", Usage: "Display emoji"},
					&cli.StringFlag{Name: "category", Usage: "Free-form category label"},
					&cli.StringFlag{Name: "cadence", Usage: "daily, weekly, 'every N days' or on_completion", Value: cadence.OnCompletion},
					&cli.StringSliceFlag{Name: "member", Usage: "Rotation member email, in turn order (repeatable; all members when omitted)"},
				},
				Action: runTasksCreate,
			},
			{
				Name:      "list",
				Usage:     "List a group's tasks",
				ArgsUsage: "<group_id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Include deleted tasks"},
				},
				Action: runTasksList,
			},
			{
				Name:      "show",
				Usage:     "Show a task with its rotation order",
				ArgsUsage: "<task_id>",
				Action:    runTasksShow,
			},
			{
				Name:      "current",
				Usage:     "Show whose turn a task is",
				ArgsUsage: "<task_id>",
				Action:    runTasksCurrent,
			},
			{
				Name:      "complete",
				Usage:     "Record a completion and advance the rotation",
				ArgsUsage: "<task_id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "by", Usage: "Email of the member who did the chore", Required: true},
				},
				Action: runTasksComplete,
			},
			{
				Name:      "skip",
				Usage:     "Advance the rotation without recording a completion",
				ArgsUsage: "<task_id>",
				Action:    runTasksSkip,
			},
			{
				Name:      "rotation",
				Usage:     "Edit a task's rotation list",
				ArgsUsage: "add|remove <task_id> --member <email>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "member", Usage: "Email of the member", Required: true},
				},
				Action: runTasksRotation,
			},
			{
				Name:      "delete",
				Usage:     "Soft-delete a task, keeping its history",
				ArgsUsage: "<task_id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "by", Usage: "Email of the requesting admin", Required: true},
				},
				Action: runTasksDelete,
			},
		},
	}
}

func runTasksCreate(ctx context.Context, cmd *cli.Command) error {
	groupID := cmd.Args().Get(0)
	name := cmd.Args().Get(1)
	if groupID == "" || name == "" {
		return fmt.Errorf("usage: cracken tasks create <group_id> <name>")
	}
	if _, err := cadence.Parse(cmd.String("cadence")); err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	members, err := a.store.ListMembers(ctx, groupID)
	if err != nil {
		return err
	}
	byEmail := make(map[string]string, len(members))
	for _, m := range members {
		byEmail[m.Email] = m.UserID
	}

	var order []string
	if emails := cmd.StringSlice("member"); len(emails) > 0 {
		for _, email := range emails {
			id, ok := byEmail[email]
			if !ok {
				return fmt.Errorf("member %s in group %s: %w", email, groupID, rotation.ErrNotFound)
			}
			order = append(order, id)
		}
	} else {
		for _, m := range members {
			order = append(order, m.UserID)
		}
	}
	if len(order) == 0 {
		return fmt.Errorf("group %s has no members to rotate: %w", groupID, rotation.ErrInvalidState)
	}

	t := &rotation.Task{
		GroupID:  groupID,
		Name:     name,
		Emoji:    cmd.String("emoji"),
		Category: cmd.String("category"),
		Cadence:  cmd.String("cadence"),
		Rotation: order,
	}
	if err := a.store.CreateTask(ctx, t); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	fmt.Printf("Task %q created as %s with %d in rotation.\n", t.Name, t.ID, len(order))
	return nil
}

func runTasksList(ctx context.Context, cmd *cli.Command) error {
	groupID := cmd.Args().First()
	if groupID == "" {
		return fmt.Errorf("usage: cracken tasks list <group_id>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	tasks, err := a.store.ListTasks(ctx, groupID, cmd.Bool("all"))
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCADENCE\tROTATION\tACTIVE")
	for _, t := range tasks {
		label := t.Name
		if t.Emoji != "" {
			label = t.Emoji + " " + t.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\n", t.ID, label, t.Cadence, len(t.Rotation), t.Active)
	}
	return w.Flush()
}

func runTasksShow(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: cracken tasks show <task_id>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	members, err := a.store.ListMembers(ctx, t.GroupID)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.UserID] = m.Name
	}

	fmt.Printf("Task:     %s %s\n", t.Emoji, t.Name)
	fmt.Printf("ID:       %s\n", t.ID)
	fmt.Printf("Group:    %s\n", t.GroupID)
	if t.Category != "" {
		fmt.Printf("Category: %s\n", t.Category)
	}
	fmt.Printf("Cadence:  %s\n", t.Cadence)
	fmt.Println("Rotation:")
	for i, id := range t.Rotation {
		marker := " "
		if i == t.Pointer {
			marker = ">"
		}
		name := names[id]
		if name == "" {
			name = id
		}
		fmt.Printf("  %s %d. %s\n", marker, i+1, name)
	}
	return nil
}

func runTasksCurrent(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: cracken tasks current <task_id>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.engine.CurrentAssignee(ctx, taskID)
	if err != nil {
		return err
	}
	fmt.Printf("It is %s's turn (%s).\n", m.Name, m.Email)
	return nil
}

func runTasksComplete(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: cracken tasks complete <task_id> --by <email>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.userByEmail(ctx, cmd.String("by"))
	if err != nil {
		return err
	}
	c, err := a.engine.Complete(ctx, taskID, u.ID, time.Now())
	if err != nil {
		return err
	}
	if c.OutOfTurn {
		fmt.Printf("Completion recorded for %s, out of turn (it was %s's turn). Rotation advanced.\n",
			u.Email, c.ScheduledID)
	} else {
		fmt.Printf("Completion recorded for %s. Rotation advanced.\n", u.Email)
	}
	return nil
}

func runTasksSkip(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: cracken tasks skip <task_id>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	next, err := a.engine.Skip(ctx, taskID)
	if err != nil {
		return err
	}
	fmt.Printf("Skipped. It is now %s's turn (%s).\n", next.Name, next.Email)
	return nil
}

func runTasksRotation(ctx context.Context, cmd *cli.Command) error {
	verb := strings.ToLower(cmd.Args().Get(0))
	taskID := cmd.Args().Get(1)
	if (verb != "add" && verb != "remove") || taskID == "" {
		return fmt.Errorf("usage: cracken tasks rotation add|remove <task_id> --member <email>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.userByEmail(ctx, cmd.String("member"))
	if err != nil {
		return err
	}

	var t *rotation.Task
	if verb == "add" {
		t, err = a.engine.AddToRotation(ctx, taskID, u.ID)
	} else {
		t, err = a.engine.RemoveFromRotation(ctx, taskID, u.ID)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Rotation for task %s now has %d members.\n", t.ID, len(t.Rotation))
	return nil
}

func runTasksDelete(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: cracken tasks delete <task_id> --by <email>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.userByEmail(ctx, cmd.String("by"))
	if err != nil {
		return err
	}
	t, err := a.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	m, err := a.store.GetMember(ctx, t.GroupID, u.ID)
	if err != nil {
		return err
	}
	if m.Role != rotation.RoleAdmin {
		return fmt.Errorf("only admins may delete tasks: %w", rotation.ErrInvalidState)
	}
	if err := a.store.DeactivateTask(ctx, taskID); err != nil {
		return err
	}
	fmt.Printf("Task %s deleted. Completion history is kept.\n", taskID)
	return nil
}
