// Package sweeper periodically walks active tasks, flags overdue ones,
// and optionally skips past inactive current assignees. It never advances
// a rotation on a timer beyond that explicit inactive-assignee skip:
// turns move on complete/skip only.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/crackenhq/cracken/internal/cadence"
	"github.com/crackenhq/cracken/internal/events"
	"github.com/crackenhq/cracken/internal/rotation"
)

// TaskSource is the read surface the sweeper needs from the store.
type TaskSource interface {
	ListActiveTasks(ctx context.Context) ([]*rotation.Task, error)
	LastCompletionAt(ctx context.Context, taskID string) (time.Time, error)
	ListMembers(ctx context.Context, groupID string) ([]*rotation.Member, error)
}

// Skipper advances a task past its current assignee.
type Skipper interface {
	Skip(ctx context.Context, taskID string) (*rotation.Member, error)
}

// Config holds sweeper dependencies and settings.
type Config struct {
	Source   TaskSource
	Engine   Skipper
	Bus      *events.Bus
	CronSpec string // when to sweep, 5-field cron; default hourly
	AutoSkip bool   // skip tasks whose current assignee is inactive
}

// Sweeper runs sweeps on a cron gate.
type Sweeper struct {
	source   TaskSource
	engine   Skipper
	bus      *events.Bus
	schedule *Schedule
	autoSkip bool
	done     chan struct{}
}

// New creates a sweeper; the cron spec defaults to the top of every hour.
func New(cfg Config) (*Sweeper, error) {
	spec := cfg.CronSpec
	if spec == "" {
		spec = "0 * * * *"
	}
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	return &Sweeper{
		source:   cfg.Source,
		engine:   cfg.Engine,
		bus:      cfg.Bus,
		schedule: schedule,
		autoSkip: cfg.AutoSkip,
		done:     make(chan struct{}),
	}, nil
}

// Start begins the minute ticker. Sweeps run when the cron gate matches.
func (s *Sweeper) Start() {
	slog.Info("sweeper started", "cron", s.schedule.String(), "auto_skip", s.autoSkip)
	go s.loop()
}

// Stop halts the ticker.
func (s *Sweeper) Stop() {
	close(s.done)
	slog.Info("sweeper stopped")
}

func (s *Sweeper) loop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			if !s.schedule.Matches(now) {
				continue
			}
			if err := s.Sweep(context.Background(), now); err != nil {
				slog.Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass over all active tasks at the given time. Exported
// so one-shot invocations can bypass the cron gate.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) error {
	tasks, err := s.source.ListActiveTasks(ctx)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		cad, err := cadence.Parse(t.Cadence)
		if err != nil {
			slog.Warn("sweep: invalid cadence", "task", t.ID, "cadence", t.Cadence)
			continue
		}

		if !cad.OnCompletionOnly() {
			last, err := s.source.LastCompletionAt(ctx, t.ID)
			if err != nil {
				slog.Warn("sweep: last completion lookup", "task", t.ID, "error", err)
			} else if cad.Due(last, now) {
				s.publishOverdue(t, last, now)
			}
		}

		if s.autoSkip {
			s.maybeSkip(ctx, t)
		}
	}
	return nil
}

func (s *Sweeper) publishOverdue(t *rotation.Task, last, now time.Time) {
	if s.bus == nil {
		return
	}
	payload := map[string]any{
		"task_id": t.ID,
		"name":    t.Name,
	}
	if !last.IsZero() {
		payload["last_completed_at"] = last.Format(time.RFC3339)
	}
	s.bus.Publish(events.New(events.TypeTaskOverdue, t.GroupID, payload))
	slog.Info("sweep: task overdue", "task", t.ID, "name", t.Name, "at", now.Format(time.RFC3339))
}

// maybeSkip advances the rotation when the scheduled member has been
// deactivated but someone else in the rotation is still active.
func (s *Sweeper) maybeSkip(ctx context.Context, t *rotation.Task) {
	if len(t.Rotation) == 0 || t.Pointer < 0 || t.Pointer >= len(t.Rotation) {
		return
	}
	members, err := s.source.ListMembers(ctx, t.GroupID)
	if err != nil {
		slog.Warn("sweep: list members", "group", t.GroupID, "error", err)
		return
	}
	activeByID := make(map[string]bool, len(members))
	for _, m := range members {
		activeByID[m.UserID] = m.Active
	}

	current := t.Rotation[t.Pointer]
	if activeByID[current] {
		return
	}
	anyActive := false
	for _, id := range t.Rotation {
		if activeByID[id] {
			anyActive = true
			break
		}
	}
	if !anyActive {
		return
	}

	next, err := s.engine.Skip(ctx, t.ID)
	if err != nil {
		slog.Warn("sweep: auto-skip", "task", t.ID, "error", err)
		return
	}
	slog.Info("sweep: skipped inactive assignee", "task", t.ID, "was", current, "now", next.UserID)
}
