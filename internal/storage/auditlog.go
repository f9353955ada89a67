// Package storage holds file-backed side channels for the rotation
// system; currently the JSONL audit trail of domain events.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/crackenhq/cracken/internal/events"
)

// AuditLog appends every bus event to a JSONL file per group. Together
// with the append-only completion table it forms the fairness audit
// trail: files are only ever appended to.
type AuditLog struct {
	dir         string
	unsubscribe func()
}

// NewAuditLog subscribes to all bus events and writes them under dir,
// one file per group.
func NewAuditLog(dir string, bus *events.Bus) *AuditLog {
	al := &AuditLog{dir: dir}
	al.unsubscribe = bus.Subscribe(al.write)
	return al
}

// Close detaches the log from the bus.
func (al *AuditLog) Close() {
	if al.unsubscribe != nil {
		al.unsubscribe()
	}
}

func (al *AuditLog) write(e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	data = append(data, '\n')

	path := al.logPath(e.GroupID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(data)
}

func (al *AuditLog) logPath(groupID string) string {
	if groupID == "" {
		return filepath.Join(al.dir, "_global.jsonl")
	}
	return filepath.Join(al.dir, groupID+".jsonl")
}
