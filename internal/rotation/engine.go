package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/crackenhq/cracken/internal/events"
)

// Engine applies rotation state transitions. All mutations go through the
// store's version-checked writes; a write that loses a race is retried
// once with a fresh read before ErrConflict is surfaced.
type Engine struct {
	store Store
	bus   *events.Bus
}

// NewEngine creates an engine over the given store. bus may be nil.
func NewEngine(store Store, bus *events.Bus) *Engine {
	return &Engine{store: store, bus: bus}
}

// CurrentAssignee returns the member whose turn it is for the task.
func (e *Engine) CurrentAssignee(ctx context.Context, taskID string) (*Member, error) {
	t, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	id, err := scheduledID(t)
	if err != nil {
		return nil, err
	}
	return e.store.GetMember(ctx, t.GroupID, id)
}

// scheduledID returns the user ID at the task's current pointer. The
// bounds check is defensive: invariants keep the pointer in range.
func scheduledID(t *Task) (string, error) {
	if len(t.Rotation) == 0 {
		return "", fmt.Errorf("task %s has an empty rotation: %w", t.ID, ErrInvalidState)
	}
	if t.Pointer < 0 || t.Pointer >= len(t.Rotation) {
		return "", fmt.Errorf("task %s pointer %d out of bounds: %w", t.ID, t.Pointer, ErrInvalidState)
	}
	return t.Rotation[t.Pointer], nil
}

// Complete records that actingMemberID did the task at the given time and
// advances the rotation to the next scheduled person. Completing out of
// turn is allowed and flagged on the record, never rejected: the schedule
// keeps its long-run fairness regardless of who actually did the chore.
func (e *Engine) Complete(ctx context.Context, taskID, actingMemberID string, at time.Time) (*Completion, error) {
	for attempt := 0; ; attempt++ {
		t, err := e.store.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if _, err := e.store.GetMember(ctx, t.GroupID, actingMemberID); err != nil {
			return nil, err
		}
		scheduled, err := scheduledID(t)
		if err != nil {
			return nil, err
		}

		c := &Completion{
			ID:          GenerateCompletionID(),
			TaskID:      t.ID,
			GroupID:     t.GroupID,
			MemberID:    actingMemberID,
			ScheduledID: scheduled,
			OutOfTurn:   actingMemberID != scheduled,
			CompletedAt: at,
		}
		t.Pointer = (t.Pointer + 1) % len(t.Rotation)

		if err := e.store.CompleteTask(ctx, t, c); err != nil {
			if errors.Is(err, ErrConflict) && attempt == 0 {
				slog.Debug("complete lost a write race, retrying", "task", taskID)
				continue
			}
			return nil, err
		}

		e.publish(events.TypeTaskCompleted, t.GroupID, map[string]any{
			"task_id":     t.ID,
			"member_id":   c.MemberID,
			"scheduled":   c.ScheduledID,
			"out_of_turn": c.OutOfTurn,
		})
		return c, nil
	}
}

// Skip advances the rotation one step without recording a completion,
// used when the scheduled member is inactive. The new current assignee
// is returned. ErrInvalidState when no member in the rotation is active.
func (e *Engine) Skip(ctx context.Context, taskID string) (*Member, error) {
	for attempt := 0; ; attempt++ {
		t, err := e.store.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if _, err := scheduledID(t); err != nil {
			return nil, err
		}

		active, err := e.activeInRotation(ctx, t)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, fmt.Errorf("task %s has no active members in rotation: %w", t.ID, ErrInvalidState)
		}

		t.Pointer = (t.Pointer + 1) % len(t.Rotation)
		if err := e.store.UpdateTaskRotation(ctx, t); err != nil {
			if errors.Is(err, ErrConflict) && attempt == 0 {
				continue
			}
			return nil, err
		}

		e.publish(events.TypeTaskSkipped, t.GroupID, map[string]any{
			"task_id": t.ID,
			"pointer": t.Pointer,
		})
		return e.store.GetMember(ctx, t.GroupID, t.Rotation[t.Pointer])
	}
}

func (e *Engine) activeInRotation(ctx context.Context, t *Task) (bool, error) {
	members, err := e.store.ListMembers(ctx, t.GroupID)
	if err != nil {
		return false, err
	}
	activeByID := make(map[string]bool, len(members))
	for _, m := range members {
		activeByID[m.UserID] = m.Active
	}
	for _, id := range t.Rotation {
		if activeByID[id] {
			return true, nil
		}
	}
	return false, nil
}

// AddToRotation appends the member to the back of the task's rotation.
// Joining at the back keeps fairness: newcomers wait their turn. The
// current assignee never changes. ErrNotFound when the user is not a
// member of the task's group, ErrConflict when already in the rotation.
func (e *Engine) AddToRotation(ctx context.Context, taskID, memberID string) (*Task, error) {
	for attempt := 0; ; attempt++ {
		t, err := e.store.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if _, err := e.store.GetMember(ctx, t.GroupID, memberID); err != nil {
			return nil, err
		}
		for _, id := range t.Rotation {
			if id == memberID {
				return nil, fmt.Errorf("member %s already in rotation for task %s: %w", memberID, taskID, ErrConflict)
			}
		}

		t.Rotation = append(t.Rotation, memberID)
		if err := e.store.UpdateTaskRotation(ctx, t); err != nil {
			if errors.Is(err, ErrConflict) && attempt == 0 {
				continue
			}
			return nil, err
		}

		e.publish(events.TypeRotationChanged, t.GroupID, map[string]any{
			"task_id":   t.ID,
			"member_id": memberID,
			"change":    "added",
		})
		return t, nil
	}
}

// RemoveFromRotation drops the member from the task's rotation. When the
// removed member was current, the pointer stays put and wraps, so the
// next person in the original relative order becomes current; when the
// pointer indexed past the removed slot it is shifted down to keep
// pointing at the same logical member.
func (e *Engine) RemoveFromRotation(ctx context.Context, taskID, memberID string) (*Task, error) {
	for attempt := 0; ; attempt++ {
		t, err := e.store.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}

		idx := -1
		for i, id := range t.Rotation {
			if id == memberID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("member %s not in rotation for task %s: %w", memberID, taskID, ErrNotFound)
		}

		t.Rotation = append(t.Rotation[:idx], t.Rotation[idx+1:]...)
		if len(t.Rotation) == 0 {
			t.Pointer = 0
		} else {
			if t.Pointer > idx {
				t.Pointer--
			}
			t.Pointer %= len(t.Rotation)
		}

		if err := e.store.UpdateTaskRotation(ctx, t); err != nil {
			if errors.Is(err, ErrConflict) && attempt == 0 {
				continue
			}
			return nil, err
		}

		e.publish(events.TypeRotationChanged, t.GroupID, map[string]any{
			"task_id":   t.ID,
			"member_id": memberID,
			"change":    "removed",
		})
		return t, nil
	}
}

// FairnessReport aggregates completion counts per actual actor across all
// of the group's tasks since the given time. Every member appears, zero
// counts included, sorted ascending by count (least-contributing first),
// ties broken by join order.
func (e *Engine) FairnessReport(ctx context.Context, groupID string, since time.Time) ([]MemberCount, error) {
	members, err := e.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}

	completions, err := e.store.ListCompletions(ctx, groupID, since)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(members))
	for _, c := range completions {
		counts[c.MemberID]++
	}

	report := make([]MemberCount, 0, len(members))
	for _, m := range members {
		report = append(report, MemberCount{Member: m, Count: counts[m.UserID]})
	}
	sort.SliceStable(report, func(i, j int) bool {
		if report[i].Count != report[j].Count {
			return report[i].Count < report[j].Count
		}
		return report[i].Member.JoinedAt.Before(report[j].Member.JoinedAt)
	})
	return report, nil
}

func (e *Engine) publish(t events.Type, groupID string, payload map[string]any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.New(t, groupID, payload))
}
