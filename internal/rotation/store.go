package rotation

import (
	"context"
	"time"
)

// Store is the persistence surface the engine depends on. Implementations
// must report ErrNotFound for missing rows and ErrConflict when a
// version-checked write loses a race.
type Store interface {
	// GetTask returns an active task by ID.
	GetTask(ctx context.Context, id string) (*Task, error)

	// GetMember returns a user's membership in a group. ErrNotFound if the
	// user is not a member of that group.
	GetMember(ctx context.Context, groupID, userID string) (*Member, error)

	// ListMembers returns all of a group's members in join order.
	ListMembers(ctx context.Context, groupID string) ([]*Member, error)

	// UpdateTaskRotation writes the task's rotation list and pointer,
	// guarded by its version. ErrConflict on version mismatch.
	UpdateTaskRotation(ctx context.Context, t *Task) error

	// CompleteTask applies the pointer advance and appends the completion
	// as one atomic unit, guarded by the task version. Partial application
	// is not permitted: either both land or neither does.
	CompleteTask(ctx context.Context, t *Task, c *Completion) error

	// ListCompletions returns a group's completions at or after since,
	// oldest first.
	ListCompletions(ctx context.Context, groupID string, since time.Time) ([]*Completion, error)
}
