// Package store persists rotation state in SQLite. It is the concrete
// implementation of the engine's persistence collaborator: tasks carry a
// version column so rotation writes are optimistic-locked, and completions
// are append-only.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/crackenhq/cracken/internal/rotation"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	invite_code TEXT NOT NULL UNIQUE,
	created_by  TEXT REFERENCES users(id),
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id  TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	user_id   TEXT NOT NULL REFERENCES users(id),
	role      TEXT NOT NULL DEFAULT 'member',
	joined_at INTEGER NOT NULL,
	active    INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	group_id   TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	emoji      TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	cadence    TEXT NOT NULL DEFAULT 'on_completion',
	rotation   TEXT NOT NULL DEFAULT '[]',
	pointer    INTEGER NOT NULL DEFAULT 0,
	version    INTEGER NOT NULL DEFAULT 0,
	active     INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_tasks_group ON tasks(group_id);

CREATE TABLE IF NOT EXISTS completions (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL REFERENCES tasks(id),
	group_id     TEXT NOT NULL REFERENCES groups(id),
	member_id    TEXT NOT NULL REFERENCES users(id),
	scheduled_id TEXT NOT NULL,
	out_of_turn  INTEGER NOT NULL DEFAULT 0,
	completed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_completions_task_time ON completions(task_id, completed_at);
CREATE INDEX IF NOT EXISTS ix_completions_group_member_time ON completions(group_id, member_id, completed_at);
`

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Schema creation is idempotent; there is no migration
// tooling.
func Open(path string) (*SQLite, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// classify maps driver errors onto the engine's error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return rotation.ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "PRIMARY KEY constraint") {
		return fmt.Errorf("%v: %w", err, rotation.ErrConflict)
	}
	return err
}

func (s *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
