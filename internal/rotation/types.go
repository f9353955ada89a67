// Package rotation implements the chore rotation engine: turn-taking over
// a per-task ordered member list with a cyclic pointer, an append-only
// completion log, and fairness reporting.
package rotation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a member's role within a group.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// User is an account known to the system. Credentials live with the
// identity collaborator, not here.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is a named household sharing a task list.
type Group struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"invite_code"`
	CreatedBy  string    `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Member is a user's membership in one group's rotation context. A user
// may belong to several groups; rotation state is scoped per group.
// Deactivated members are skipped by the sweeper but their history is kept.
type Member struct {
	UserID   string    `json:"user_id"`
	GroupID  string    `json:"group_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	Active   bool      `json:"active"`
}

// Task is a chore within a group. Rotation holds member user IDs in turn
// order; Pointer indexes whose turn it is. Version guards read-modify-write
// cycles on the rotation state (optimistic locking).
type Task struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Name      string    `json:"name"`
	Emoji     string    `json:"emoji,omitempty"`
	Category  string    `json:"category,omitempty"`
	Cadence   string    `json:"cadence,omitempty"`
	Rotation  []string  `json:"rotation"`
	Pointer   int       `json:"pointer"`
	Version   int       `json:"version"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Completion is an immutable record of a task being done. ScheduledID is
// who was up when it happened; OutOfTurn marks actor != scheduled. The log
// is append-only: records are never updated or deleted.
type Completion struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	GroupID     string    `json:"group_id"`
	MemberID    string    `json:"member_id"`
	ScheduledID string    `json:"scheduled_id"`
	OutOfTurn   bool      `json:"out_of_turn"`
	CompletedAt time.Time `json:"completed_at"`
}

// MemberCount is one row of a fairness report.
type MemberCount struct {
	Member *Member `json:"member"`
	Count  int     `json:"count"`
}

func newID(prefix string) string {
	u := uuid.New().String()
	return prefix + "_" + strings.ReplaceAll(u[:8], "-", "")
}

// GenerateGroupID creates a unique group identifier.
func GenerateGroupID() string { return newID("grp") }

// GenerateUserID creates a unique user identifier.
func GenerateUserID() string { return newID("usr") }

// GenerateTaskID creates a unique task identifier.
func GenerateTaskID() string { return newID("task") }

// GenerateCompletionID creates a unique completion identifier.
func GenerateCompletionID() string { return newID("cmp") }
