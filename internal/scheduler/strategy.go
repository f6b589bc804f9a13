package scheduler

import (
	"context"
	"time"
)

// Strategy decides when to wake and drive a Schedule. Both implementations
// produce identical downstream behavior (same Observe/check/Dispatched
// cycle); they differ only in wake-up mechanism.
type Strategy interface {
	Run(ctx context.Context, sched *Schedule, check func(now time.Time))
}

// NewStrategy selects the deferred-timer strategy when the platform
// supports it, else the polling fallback. The capability flag is injected
// at construction; no feature-sniffing inside the loop.
func NewStrategy(deferredTimerAvailable bool, pollInterval time.Duration) Strategy {
	if deferredTimerAvailable {
		return &TimerStrategy{}
	}
	return &PollingStrategy{Interval: pollInterval}
}

// TimerStrategy computes the next target instant and sleeps until then.
// Preferred when available: a single long timer survives process
// suspension better than a tight poll loop.
type TimerStrategy struct {
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (t *TimerStrategy) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Run wakes at each target instant until ctx is done.
func (t *TimerStrategy) Run(ctx context.Context, sched *Schedule, check func(now time.Time)) {
	for {
		now := t.now()
		next := sched.Target().Next(now)
		if !next.After(now) {
			// Already inside the target minute (after a fire, or when
			// started mid-window): wait out the minute boundary so the
			// timer duration never goes negative.
			next = now.Truncate(time.Minute).Add(time.Minute)
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		now = t.now()
		if sched.Observe(now) {
			check(now)
			sched.Dispatched(now)
		}
	}
}

// PollingStrategy wakes on a fixed short cadence and compares wall-clock
// time against the target. Fallback for platforms without a reliable
// deferred timer.
type PollingStrategy struct {
	// Interval is the wake cadence; must be no coarser than a minute.
	Interval time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (p *PollingStrategy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run polls until ctx is done.
func (p *PollingStrategy) Run(ctx context.Context, sched *Schedule, check func(now time.Time)) {
	interval := p.Interval
	if interval <= 0 || interval > time.Minute {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := p.now()
			if sched.Observe(now) {
				check(now)
				sched.Dispatched(now)
			}
		}
	}
}
