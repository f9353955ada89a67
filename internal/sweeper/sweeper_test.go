package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/crackenhq/cracken/internal/events"
	"github.com/crackenhq/cracken/internal/rotation"
)

type fakeSource struct {
	tasks   []*rotation.Task
	last    map[string]time.Time
	members map[string][]*rotation.Member
}

func (f *fakeSource) ListActiveTasks(context.Context) ([]*rotation.Task, error) {
	return f.tasks, nil
}

func (f *fakeSource) LastCompletionAt(_ context.Context, taskID string) (time.Time, error) {
	return f.last[taskID], nil
}

func (f *fakeSource) ListMembers(_ context.Context, groupID string) ([]*rotation.Member, error) {
	return f.members[groupID], nil
}

type fakeSkipper struct {
	skipped []string
}

func (f *fakeSkipper) Skip(_ context.Context, taskID string) (*rotation.Member, error) {
	f.skipped = append(f.skipped, taskID)
	return &rotation.Member{UserID: "next"}, nil
}

func member(id string, active bool) *rotation.Member {
	return &rotation.Member{UserID: id, GroupID: "grp_1", Active: active}
}

func TestSweepPublishesOverdue(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{
		tasks: []*rotation.Task{
			{ID: "task_daily", GroupID: "grp_1", Name: "Dishes", Cadence: "daily", Rotation: []string{"a"}},
			{ID: "task_fresh", GroupID: "grp_1", Name: "Bins", Cadence: "weekly", Rotation: []string{"a"}},
			{ID: "task_oc", GroupID: "grp_1", Name: "Plants", Cadence: "on_completion", Rotation: []string{"a"}},
		},
		last: map[string]time.Time{
			"task_daily": now.Add(-48 * time.Hour), // overdue
			"task_fresh": now.Add(-time.Hour),      // not due yet
		},
		members: map[string][]*rotation.Member{"grp_1": {member("a", true)}},
	}
	bus := events.NewBus(16)
	var overdue []events.Event
	bus.Subscribe(func(e events.Event) { overdue = append(overdue, e) }, events.TypeTaskOverdue)

	sw, err := New(Config{Source: src, Engine: &fakeSkipper{}, Bus: bus})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sw.Sweep(context.Background(), now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(overdue) != 1 {
		t.Fatalf("overdue events: got %d, want 1", len(overdue))
	}
	if overdue[0].Payload["task_id"] != "task_daily" {
		t.Errorf("overdue task: got %v", overdue[0].Payload["task_id"])
	}
}

func TestSweepAutoSkipsInactiveAssignee(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{
		tasks: []*rotation.Task{
			// b is current but inactive; a is still active.
			{ID: "task_1", GroupID: "grp_1", Cadence: "on_completion", Rotation: []string{"a", "b"}, Pointer: 1},
			// c is current and active: left alone.
			{ID: "task_2", GroupID: "grp_1", Cadence: "on_completion", Rotation: []string{"c"}, Pointer: 0},
			// everyone inactive: nothing to skip to.
			{ID: "task_3", GroupID: "grp_1", Cadence: "on_completion", Rotation: []string{"b", "d"}, Pointer: 0},
		},
		last: map[string]time.Time{},
		members: map[string][]*rotation.Member{"grp_1": {
			member("a", true), member("b", false), member("c", true), member("d", false),
		}},
	}
	skipper := &fakeSkipper{}

	sw, err := New(Config{Source: src, Engine: skipper, AutoSkip: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sw.Sweep(context.Background(), now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(skipper.skipped) != 1 || skipper.skipped[0] != "task_1" {
		t.Errorf("skipped: got %v, want [task_1]", skipper.skipped)
	}
}

func TestSweepWithoutAutoSkip(t *testing.T) {
	src := &fakeSource{
		tasks: []*rotation.Task{
			{ID: "task_1", GroupID: "grp_1", Cadence: "on_completion", Rotation: []string{"a", "b"}, Pointer: 1},
		},
		last:    map[string]time.Time{},
		members: map[string][]*rotation.Member{"grp_1": {member("a", true), member("b", false)}},
	}
	skipper := &fakeSkipper{}

	sw, err := New(Config{Source: src, Engine: skipper})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sw.Sweep(context.Background(), time.Now()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(skipper.skipped) != 0 {
		t.Errorf("auto-skip disabled but skipped %v", skipper.skipped)
	}
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("30 8 * * *")
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}

	at := time.Date(2026, 8, 10, 8, 30, 12, 0, time.UTC)
	if !s.Matches(at) {
		t.Error("expected 08:30 to match")
	}
	if s.Matches(at.Add(time.Minute)) {
		t.Error("08:31 should not match")
	}

	next := s.Next(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	if want := time.Date(2026, 8, 11, 8, 30, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("Next: got %v, want %v", next, want)
	}

	if _, err := ParseSchedule("not a cron"); err == nil {
		t.Error("expected error for invalid expression")
	}
}
