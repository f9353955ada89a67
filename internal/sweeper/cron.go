package sweeper

import (
	"fmt"
	"time"

	cron "github.com/netresearch/go-cron"
)

// Schedule wraps a parsed 5-field cron expression gating sweep runs.
type Schedule struct {
	raw      string
	schedule cron.Schedule
}

// ParseSchedule parses a standard minute-based cron expression.
func ParseSchedule(expr string) (*Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	return &Schedule{raw: expr, schedule: schedule}, nil
}

// Next returns the next activation after t.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Matches reports whether t falls in the same minute as an activation.
func (s *Schedule) Matches(t time.Time) bool {
	truncated := t.Truncate(time.Minute)
	next := s.schedule.Next(truncated.Add(-time.Minute))
	return next.Equal(truncated)
}

func (s *Schedule) String() string { return s.raw }
