// Package events provides an in-memory pub/sub bus for rotation domain
// events, with a bounded history ring for diagnostics.
package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Type identifies the kind of event.
type Type string

const (
	TypeGroupCreated    Type = "group.created"
	TypeMemberJoined    Type = "member.joined"
	TypeTaskCompleted   Type = "task.completed"
	TypeTaskSkipped     Type = "task.skipped"
	TypeRotationChanged Type = "rotation.changed"
	TypeTaskOverdue     Type = "task.overdue"
)

// Event is a single domain event. GroupID scopes the event to a household
// and may be empty for global events.
type Event struct {
	ID        string         `json:"id"`
	GroupID   string         `json:"group_id,omitempty"`
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

var eventSeq uint64

// New creates an event with the current timestamp.
func New(t Type, groupID string, payload map[string]any) Event {
	seq := atomic.AddUint64(&eventSeq, 1)
	return Event{
		ID:        fmt.Sprintf("%d-%d", time.Now().UnixNano(), seq),
		GroupID:   groupID,
		Type:      t,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	types   []Type
	handler Handler
}

// Bus dispatches events synchronously on the publisher's goroutine. Engine
// operations are request-per-call, so handlers finish before the operation
// returns; handlers must not publish recursively.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	ring   *ring
	closed bool
}

// NewBus creates a bus keeping the most recent historySize events.
func NewBus(historySize int) *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
		ring: newRing(historySize),
	}
}

// Publish records the event and invokes matching subscribers. Publishing
// on a closed bus is a no-op.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.matches(e.Type) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	b.ring.add(e)
	for _, h := range handlers {
		h(e)
	}
}

func (s *subscription) matches(t Type) bool {
	if len(s.types) == 0 {
		return true
	}
	for _, st := range s.types {
		if st == t {
			return true
		}
	}
	return false
}

// Subscribe registers a handler for the given types (all types when none
// given) and returns an unsubscribe function.
func (b *Bus) Subscribe(h Handler, types ...Type) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = &subscription{types: types, handler: h}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// History returns up to limit recent events, oldest first.
func (b *Bus) History(limit int) []Event {
	return b.ring.get(limit)
}

// Close stops further dispatch.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// ring is a fixed-size circular buffer of recent events.
type ring struct {
	mu     sync.RWMutex
	events []Event
	pos    int
	count  int
}

func newRing(size int) *ring {
	if size <= 0 {
		size = 1
	}
	return &ring{events: make([]Event, size)}
}

func (r *ring) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.pos] = e
	r.pos = (r.pos + 1) % len(r.events)
	if r.count < len(r.events) {
		r.count++
	}
}

func (r *ring) get(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Event, n)
	start := (r.pos - n + len(r.events)) % len(r.events)
	for i := 0; i < n; i++ {
		out[i] = r.events[(start+i)%len(r.events)]
	}
	return out
}
