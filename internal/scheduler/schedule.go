package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// State is the per-subscriber scheduling state.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateFiring
	StateCoolingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	case StateCoolingDown:
		return "cooling-down"
	default:
		return "unknown"
	}
}

// TimeOfDay is a wall-clock target at minute granularity.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM", zero-padded 24-hour. time.Parse alone is
// lenient about padding, so the shape is checked first.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return TimeOfDay{}, fmt.Errorf("parse notification time %q: want HH:MM", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse notification time %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Matches reports whether now falls inside the target minute.
func (t TimeOfDay) Matches(now time.Time) bool {
	return now.Hour() == t.Hour && now.Minute() == t.Minute
}

// Next returns the next instant the target minute begins: today if still
// ahead (or running now), else tomorrow.
func (t TimeOfDay) Next(now time.Time) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
	if !target.Add(time.Minute).After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// Schedule is the daily-notification state machine for one subscriber:
// Idle until a time is configured, Armed while waiting, Firing during the
// dispatch decision, CoolingDown until the minute boundary passes. The
// cooldown guarantees at most one fire within any given minute.
type Schedule struct {
	mu            sync.Mutex
	target        TimeOfDay
	state         State
	cooldownUntil time.Time
}

// NewSchedule returns an idle schedule; it arms on the first Configure.
func NewSchedule() *Schedule {
	return &Schedule{state: StateIdle}
}

// Configure (re)sets the target time and arms the schedule.
func (s *Schedule) Configure(target TimeOfDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = target
	s.state = StateArmed
	s.cooldownUntil = time.Time{}
}

// Target returns the configured time of day.
func (s *Schedule) Target() TimeOfDay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// State returns the current state.
func (s *Schedule) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Observe advances the state machine against the wall clock and reports
// whether the check pipeline should run now. A true return moves the
// schedule to Firing; the caller must follow up with Dispatched.
func (s *Schedule) Observe(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCoolingDown && !now.Before(s.cooldownUntil) {
		s.state = StateArmed
	}

	if s.state != StateArmed {
		return false
	}
	if !s.target.Matches(now) {
		return false
	}
	s.state = StateFiring
	return true
}

// Dispatched records that the dispatch decision completed (whether or not a
// notification went out) and starts the cooldown lasting until the next
// minute boundary.
func (s *Schedule) Dispatched(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFiring {
		return
	}
	s.state = StateCoolingDown
	s.cooldownUntil = now.Truncate(time.Minute).Add(time.Minute)
}
