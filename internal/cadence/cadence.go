// Package cadence parses task recurrence cadences and computes due times.
// Cadence never drives the rotation pointer: turns advance only on explicit
// complete/skip. It feeds due/overdue reporting and the sweeper.
package cadence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OnCompletion is the cadence of tasks that are only ever due again once
// someone decides to do them. It is the default for an empty cadence.
const OnCompletion = "on_completion"

// Cadence is a parsed recurrence rule.
type Cadence struct {
	raw      string
	interval time.Duration // zero for on-completion tasks
}

// Parse accepts "on_completion" (or empty), "daily", "weekly", and
// "every N days".
func Parse(s string) (Cadence, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	switch raw {
	case "", OnCompletion:
		return Cadence{raw: OnCompletion}, nil
	case "daily":
		return Cadence{raw: raw, interval: 24 * time.Hour}, nil
	case "weekly":
		return Cadence{raw: raw, interval: 7 * 24 * time.Hour}, nil
	}

	fields := strings.Fields(raw)
	if len(fields) == 3 && fields[0] == "every" && (fields[2] == "days" || fields[2] == "day") {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return Cadence{}, fmt.Errorf("invalid cadence %q: day count must be a positive integer", s)
		}
		return Cadence{raw: raw, interval: time.Duration(n) * 24 * time.Hour}, nil
	}

	return Cadence{}, fmt.Errorf("invalid cadence %q", s)
}

// OnCompletionOnly reports whether the task has no timer component.
func (c Cadence) OnCompletionOnly() bool { return c.interval == 0 }

// NextDue returns when the task is due again after being done at lastDone.
// The second return is false for on-completion tasks, which are never due
// by timer.
func (c Cadence) NextDue(lastDone time.Time) (time.Time, bool) {
	if c.OnCompletionOnly() {
		return time.Time{}, false
	}
	return lastDone.Add(c.interval), true
}

// Due reports whether the task is due at now, given its last completion.
// A zero lastDone means never completed: interval tasks are immediately due.
func (c Cadence) Due(lastDone, now time.Time) bool {
	if c.OnCompletionOnly() {
		return false
	}
	if lastDone.IsZero() {
		return true
	}
	next, _ := c.NextDue(lastDone)
	return !now.Before(next)
}

func (c Cadence) String() string { return c.raw }
