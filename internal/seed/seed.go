// Package seed loads a household definition from a JSON file into the
// store: groups, members (users created on demand), and tasks with their
// rotation order. Input is validated against an embedded JSON Schema
// before any row is written.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/crackenhq/cracken/internal/cadence"
	"github.com/crackenhq/cracken/internal/rotation"
	"github.com/crackenhq/cracken/internal/store"
)

//go:embed schema.json
var schemaJSON string

// File is the top-level seed document.
type File struct {
	Groups []GroupSeed `json:"groups"`
}

// GroupSeed describes one household. The invite code is taken as given,
// never generated here.
type GroupSeed struct {
	Name       string       `json:"name"`
	InviteCode string       `json:"invite_code"`
	Members    []MemberSeed `json:"members"`
	Tasks      []TaskSeed   `json:"tasks,omitempty"`
}

// MemberSeed describes one member; the user is created when the email is
// not yet known.
type MemberSeed struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

// TaskSeed describes one task. Rotation lists member emails in turn
// order; when omitted, all of the group's members rotate in join order.
type TaskSeed struct {
	Name     string   `json:"name"`
	Emoji    string   `json:"emoji,omitempty"`
	Category string   `json:"category,omitempty"`
	Cadence  string   `json:"cadence,omitempty"`
	Rotation []string `json:"rotation,omitempty"`
}

// Summary reports what an import created.
type Summary struct {
	Groups  int
	Members int
	Tasks   int
}

// Validate checks raw seed data against the embedded schema.
func Validate(data []byte) error {
	schema, err := jsonschema.CompileString("schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("compile seed schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("seed file invalid: %w", err)
	}
	return nil
}

// Import validates data and writes it to the store. Cadences and rotation
// references are checked before the first group is created, so a bad file
// leaves the database untouched.
func Import(ctx context.Context, st *store.SQLite, data []byte) (*Summary, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := check(&f); err != nil {
		return nil, err
	}

	sum := &Summary{}
	now := time.Now()
	for _, gs := range f.Groups {
		if err := importGroup(ctx, st, gs, now, sum); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// check verifies the cross-field rules the schema cannot express.
func check(f *File) error {
	for _, gs := range f.Groups {
		emails := make(map[string]bool, len(gs.Members))
		for _, ms := range gs.Members {
			if emails[ms.Email] {
				return fmt.Errorf("group %q: duplicate member %s", gs.Name, ms.Email)
			}
			emails[ms.Email] = true
		}
		for _, ts := range gs.Tasks {
			if _, err := cadence.Parse(ts.Cadence); err != nil {
				return fmt.Errorf("group %q task %q: %w", gs.Name, ts.Name, err)
			}
			for _, email := range ts.Rotation {
				if !emails[email] {
					return fmt.Errorf("group %q task %q: rotation member %s is not in the group", gs.Name, ts.Name, email)
				}
			}
		}
	}
	return nil
}

func importGroup(ctx context.Context, st *store.SQLite, gs GroupSeed, now time.Time, sum *Summary) error {
	// Users first: reuse accounts already known by email.
	userIDs := make(map[string]string, len(gs.Members))
	for _, ms := range gs.Members {
		u, err := st.GetUserByEmail(ctx, ms.Email)
		if errors.Is(err, rotation.ErrNotFound) {
			u = &rotation.User{Email: ms.Email, Name: ms.Name}
			if err := st.CreateUser(ctx, u); err != nil {
				return fmt.Errorf("create user %s: %w", ms.Email, err)
			}
		} else if err != nil {
			return err
		}
		userIDs[ms.Email] = u.ID
	}

	// The first member is the creator and gets the admin role.
	g := &rotation.Group{
		Name:       gs.Name,
		InviteCode: gs.InviteCode,
		CreatedBy:  userIDs[gs.Members[0].Email],
		CreatedAt:  now,
	}
	if err := st.CreateGroup(ctx, g); err != nil {
		return fmt.Errorf("create group %q: %w", gs.Name, err)
	}
	sum.Groups++
	sum.Members++

	for i, ms := range gs.Members[1:] {
		role := rotation.Role(ms.Role)
		// Deterministic join order: seed order is join order.
		at := now.Add(time.Duration(i+1) * time.Millisecond)
		if err := st.JoinGroup(ctx, g.ID, userIDs[ms.Email], role, at); err != nil {
			return fmt.Errorf("add member %s to %q: %w", ms.Email, gs.Name, err)
		}
		sum.Members++
	}

	for _, ts := range gs.Tasks {
		rot := make([]string, 0, len(gs.Members))
		if len(ts.Rotation) == 0 {
			// Default mirrors membership: everyone rotates, join order.
			for _, ms := range gs.Members {
				rot = append(rot, userIDs[ms.Email])
			}
		} else {
			for _, email := range ts.Rotation {
				rot = append(rot, userIDs[email])
			}
		}

		task := &rotation.Task{
			GroupID:  g.ID,
			Name:     ts.Name,
			Emoji:    ts.Emoji,
			Category: ts.Category,
			Cadence:  ts.Cadence,
			Rotation: rot,
		}
		if err := st.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("create task %q in %q: %w", ts.Name, gs.Name, err)
		}
		sum.Tasks++
	}

	slog.Info("seeded group", "group", g.ID, "name", g.Name,
		"members", len(gs.Members), "tasks", len(gs.Tasks))
	return nil
}
