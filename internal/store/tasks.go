package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crackenhq/cracken/internal/rotation"
)

// CreateTask inserts a task. Every member referenced in the rotation list
// must belong to the task's group.
func (s *SQLite) CreateTask(ctx context.Context, t *rotation.Task) error {
	if t.ID == "" {
		t.ID = rotation.GenerateTaskID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Active = true

	members, err := s.ListMembers(ctx, t.GroupID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.UserID] = true
	}
	for _, id := range t.Rotation {
		if !known[id] {
			return fmt.Errorf("rotation member %s not in group %s: %w", id, t.GroupID, rotation.ErrNotFound)
		}
	}

	rot, err := json.Marshal(t.Rotation)
	if err != nil {
		return fmt.Errorf("encode rotation: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, group_id, name, emoji, category, cadence, rotation, pointer, version, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 1, ?)`,
		t.ID, t.GroupID, t.Name, t.Emoji, t.Category, t.Cadence, string(rot), t.Pointer, t.CreatedAt.UnixNano())
	return classify(err)
}

const taskColumns = `id, group_id, name, emoji, category, cadence, rotation, pointer, version, active, created_at`

// GetTask returns an active task by ID. Soft-deleted tasks are reported
// as missing.
func (s *SQLite) GetTask(ctx context.Context, id string) (*rotation.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND active = 1`, id)
	t, err := scanTask(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, classify(err))
	}
	return t, nil
}

// ListTasks returns a group's tasks, newest first. Soft-deleted tasks are
// included only when includeInactive is set.
func (s *SQLite) ListTasks(ctx context.Context, groupID string, includeInactive bool) ([]*rotation.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE group_id = ?`
	if !includeInactive {
		q += ` AND active = 1`
	}
	q += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListActiveTasks returns every active task across all groups, for the
// sweeper.
func (s *SQLite) ListActiveTasks(ctx context.Context) ([]*rotation.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE active = 1 ORDER BY group_id, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]*rotation.Task, error) {
	var out []*rotation.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(scan func(...any) error) (*rotation.Task, error) {
	var t rotation.Task
	var rot string
	var active int
	var createdAt int64
	if err := scan(&t.ID, &t.GroupID, &t.Name, &t.Emoji, &t.Category, &t.Cadence,
		&rot, &t.Pointer, &t.Version, &active, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rot), &t.Rotation); err != nil {
		return nil, fmt.Errorf("decode rotation for task %s: %w", t.ID, err)
	}
	t.Active = active != 0
	t.CreatedAt = time.Unix(0, createdAt)
	return &t, nil
}

// UpdateTaskRotation writes rotation list and pointer guarded by the
// version the caller read. Zero rows affected means someone else got
// there first.
func (s *SQLite) UpdateTaskRotation(ctx context.Context, t *rotation.Task) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return updateRotationTx(ctx, tx, t)
	})
}

func updateRotationTx(ctx context.Context, tx *sql.Tx, t *rotation.Task) error {
	rot, err := json.Marshal(t.Rotation)
	if err != nil {
		return fmt.Errorf("encode rotation: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET rotation = ?, pointer = ?, version = version + 1
		 WHERE id = ? AND version = ? AND active = 1`,
		string(rot), t.Pointer, t.ID, t.Version)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s version %d: %w", t.ID, t.Version, rotation.ErrConflict)
	}
	t.Version++
	return nil
}

// CompleteTask applies the pointer advance and appends the completion
// record in one transaction. Either both land or neither does.
func (s *SQLite) CompleteTask(ctx context.Context, t *rotation.Task, c *rotation.Completion) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateRotationTx(ctx, tx, t); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO completions (id, task_id, group_id, member_id, scheduled_id, out_of_turn, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.TaskID, c.GroupID, c.MemberID, c.ScheduledID, boolInt(c.OutOfTurn), c.CompletedAt.UnixNano()); err != nil {
			return classify(err)
		}
		return nil
	})
}

// DeactivateTask soft-deletes a task. Completion history is preserved.
func (s *SQLite) DeactivateTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET active = 0 WHERE id = ? AND active = 1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, rotation.ErrNotFound)
	}
	return nil
}
