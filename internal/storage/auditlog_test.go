package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/crackenhq/cracken/internal/events"
)

func readLines(t *testing.T, path string) []events.Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var out []events.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e events.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		out = append(out, e)
	}
	return out
}

func TestAuditLogWritesPerGroup(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus(16)
	al := NewAuditLog(dir, bus)
	defer al.Close()

	bus.Publish(events.New(events.TypeTaskCompleted, "grp_a", map[string]any{"task_id": "task_1"}))
	bus.Publish(events.New(events.TypeTaskSkipped, "grp_a", nil))
	bus.Publish(events.New(events.TypeTaskCompleted, "grp_b", nil))

	a := readLines(t, filepath.Join(dir, "grp_a.jsonl"))
	if len(a) != 2 {
		t.Fatalf("grp_a lines: got %d, want 2", len(a))
	}
	if a[0].Type != events.TypeTaskCompleted || a[1].Type != events.TypeTaskSkipped {
		t.Errorf("grp_a order: got %s, %s", a[0].Type, a[1].Type)
	}
	if a[0].Payload["task_id"] != "task_1" {
		t.Errorf("payload: got %v", a[0].Payload)
	}

	b := readLines(t, filepath.Join(dir, "grp_b.jsonl"))
	if len(b) != 1 {
		t.Fatalf("grp_b lines: got %d, want 1", len(b))
	}
}

func TestAuditLogGlobalFallback(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus(16)
	al := NewAuditLog(dir, bus)
	defer al.Close()

	bus.Publish(events.New(events.TypeGroupCreated, "", nil))

	g := readLines(t, filepath.Join(dir, "_global.jsonl"))
	if len(g) != 1 {
		t.Fatalf("global lines: got %d, want 1", len(g))
	}
}

func TestAuditLogDetachesOnClose(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus(16)
	al := NewAuditLog(dir, bus)

	bus.Publish(events.New(events.TypeTaskCompleted, "grp_a", nil))
	al.Close()
	bus.Publish(events.New(events.TypeTaskCompleted, "grp_a", nil))

	a := readLines(t, filepath.Join(dir, "grp_a.jsonl"))
	if len(a) != 1 {
		t.Fatalf("lines after close: got %d, want 1", len(a))
	}
}
