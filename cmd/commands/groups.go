package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/crackenhq/cracken/internal/events"
	"github.com/crackenhq/cracken/internal/rotation"
)

// NewGroupsCommand returns the groups subcommand.
func NewGroupsCommand() *cli.Command {
	return &cli.Command{
		Name:  "groups",
		Usage: "Manage households and their members",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a group with its creator as admin",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "by", Usage: "Email of the creating user", Required: true},
					&cli.StringFlag{Name: "code", Usage: "Invite code for the group", Required: true},
				},
				Action: runGroupsCreate,
			},
			{
				Name:      "join",
				Usage:     "Join a group by invite code",
				ArgsUsage: "<invite_code>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "as", Usage: "Email of the joining user", Required: true},
				},
				Action: runGroupsJoin,
			},
			{
				Name:   "list",
				Usage:  "List all groups",
				Action: runGroupsList,
			},
			{
				Name:      "members",
				Usage:     "List a group's members in join order",
				ArgsUsage: "<group_id>",
				Action:    runGroupsMembers,
			},
			{
				Name:      "activate",
				Usage:     "Put a member back on rotation duty",
				ArgsUsage: "<group_id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "member", Usage: "Email of the member", Required: true},
				},
				Action: runGroupsActivate,
			},
			{
				Name:      "deactivate",
				Usage:     "Take a member off rotation duty, keeping their history",
				ArgsUsage: "<group_id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "member", Usage: "Email of the member", Required: true},
				},
				Action: runGroupsDeactivate,
			},
		},
		DefaultCommand: "list",
	}
}

func runGroupsCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: cracken groups create <name> --by <email> --code <invite_code>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	creator, err := a.userByEmail(ctx, cmd.String("by"))
	if err != nil {
		return err
	}

	g := &rotation.Group{
		Name:       name,
		InviteCode: cmd.String("code"),
		CreatedBy:  creator.ID,
	}
	if err := a.store.CreateGroup(ctx, g); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	a.bus.Publish(events.New(events.TypeGroupCreated, g.ID, map[string]any{
		"name":       g.Name,
		"created_by": creator.ID,
	}))
	fmt.Printf("Group %q created as %s (invite code %s).\n", g.Name, g.ID, g.InviteCode)
	return nil
}

func runGroupsJoin(ctx context.Context, cmd *cli.Command) error {
	code := cmd.Args().First()
	if code == "" {
		return fmt.Errorf("usage: cracken groups join <invite_code> --as <email>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.userByEmail(ctx, cmd.String("as"))
	if err != nil {
		return err
	}
	g, err := a.store.GetGroupByInviteCode(ctx, code)
	if err != nil {
		return err
	}
	if err := a.store.JoinGroup(ctx, g.ID, u.ID, rotation.RoleMember, time.Now()); err != nil {
		return fmt.Errorf("join group: %w", err)
	}
	a.bus.Publish(events.New(events.TypeMemberJoined, g.ID, map[string]any{
		"user_id": u.ID,
		"email":   u.Email,
	}))
	fmt.Printf("%s joined %q.\n", u.Email, g.Name)
	return nil
}

func runGroupsList(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	groups, err := a.store.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	if len(groups) == 0 {
		fmt.Println("No groups found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tINVITE CODE")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%s\n", g.ID, g.Name, g.InviteCode)
	}
	return w.Flush()
}

func runGroupsMembers(ctx context.Context, cmd *cli.Command) error {
	groupID := cmd.Args().First()
	if groupID == "" {
		return fmt.Errorf("usage: cracken groups members <group_id>")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	members, err := a.store.ListMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	if len(members) == 0 {
		fmt.Println("No members found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tNAME\tEMAIL\tROLE\tACTIVE\tJOINED")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\n",
			m.UserID, m.Name, m.Email, m.Role, m.Active, m.JoinedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runGroupsActivate(ctx context.Context, cmd *cli.Command) error {
	return setMemberActive(ctx, cmd, true)
}

func runGroupsDeactivate(ctx context.Context, cmd *cli.Command) error {
	return setMemberActive(ctx, cmd, false)
}

func setMemberActive(ctx context.Context, cmd *cli.Command, active bool) error {
	groupID := cmd.Args().First()
	if groupID == "" {
		return fmt.Errorf("a group ID argument is required")
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
	if err := a.store.SetMemberActive(ctx, groupID, u.ID, active); err != nil {
		return err
	}
	state := "inactive"
	if active {
		state = "active"
	}
	fmt.Printf("%s is now %s in group %s.\n", u.Email, state, groupID)
	return nil
}
