package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/crackenhq/cracken/internal/rotation"
)

// ListCompletions returns a group's completions at or after since, oldest
// first. The log is append-only; there is no update or delete path.
func (s *SQLite) ListCompletions(ctx context.Context, groupID string, since time.Time) ([]*rotation.Completion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, group_id, member_id, scheduled_id, out_of_turn, completed_at
		 FROM completions WHERE group_id = ? AND completed_at >= ?
		 ORDER BY completed_at, id`,
		groupID, since.UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*rotation.Completion
	for rows.Next() {
		var c rotation.Completion
		var outOfTurn int
		var completedAt int64
		if err := rows.Scan(&c.ID, &c.TaskID, &c.GroupID, &c.MemberID, &c.ScheduledID, &outOfTurn, &completedAt); err != nil {
			return nil, err
		}
		c.OutOfTurn = outOfTurn != 0
		c.CompletedAt = time.Unix(0, completedAt)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// LastCompletionAt returns when the task was last completed, or the zero
// time when it never was.
func (s *SQLite) LastCompletionAt(ctx context.Context, taskID string) (time.Time, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT completed_at FROM completions WHERE task_id = ? ORDER BY completed_at DESC LIMIT 1`, taskID)
	var completedAt int64
	if err := row.Scan(&completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return time.Unix(0, completedAt), nil
}
