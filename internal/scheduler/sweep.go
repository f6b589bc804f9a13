package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/lifecycle"
	"github.com/swimcast/swimcast/internal/models"
	"github.com/swimcast/swimcast/internal/observability"
	"github.com/swimcast/swimcast/internal/subscription"
)

// Checker runs the forecast+classify+dispatch pipeline for one subscriber.
type Checker interface {
	Check(ctx context.Context, sub models.Subscription)
}

// Sweeper drives every subscriber's schedule from one periodic wake-up.
// Each sweep walks a store snapshot sequentially; subscribers whose target
// minute has arrived get exactly one pipeline run.
type Sweeper struct {
	store    *subscription.Store
	checker  Checker
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	cron *gocron.Scheduler
	now  func() time.Time

	// schedules is shared between the registration handler (Arm) and the
	// sweep goroutine.
	mu        sync.Mutex
	schedules map[models.PushIdentity]*Schedule
}

// NewSweeper creates a Sweeper waking at the given cadence (≤60s, enforced
// by config validation). timeout bounds one subscriber's pipeline run.
func NewSweeper(store *subscription.Store, checker Checker, interval, timeout time.Duration, logger *zap.Logger) *Sweeper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Sweeper{
		store:     store,
		checker:   checker,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		cron:      gocron.NewScheduler(time.Local),
		now:       time.Now,
		schedules: make(map[models.PushIdentity]*Schedule),
	}
}

// Arm creates or re-arms the schedule for a subscription. Call after every
// registration; an unparseable time leaves the schedule idle.
func (s *Sweeper) Arm(sub models.Subscription) {
	target, err := ParseTimeOfDay(sub.NotificationTime)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("subscription has invalid notification time",
				zap.String("time", sub.NotificationTime), zap.Error(err))
		}
		return
	}
	s.mu.Lock()
	sched, ok := s.schedules[sub.Identity]
	if !ok {
		sched = NewSchedule()
		s.schedules[sub.Identity] = sched
	}
	s.mu.Unlock()
	sched.Configure(target)
}

// schedule returns the schedule for an identity, arming lazily so
// subscriptions that predate the sweeper still fire.
func (s *Sweeper) schedule(sub models.Subscription) *Schedule {
	s.mu.Lock()
	sched, ok := s.schedules[sub.Identity]
	s.mu.Unlock()
	if ok {
		return sched
	}
	s.Arm(sub)
	s.mu.Lock()
	sched = s.schedules[sub.Identity]
	s.mu.Unlock()
	return sched
}

// Start schedules the periodic sweep job and starts the underlying scheduler.
func (s *Sweeper) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 30
	}
	if _, err := s.cron.Every(seconds).Seconds().Do(s.sweep); err != nil {
		return err
	}
	s.cron.StartAsync()
	return nil
}

// Stop stops the sweep job.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// sweep runs one pass over the store.
func (s *Sweeper) sweep() {
	if lifecycle.IsShuttingDown() {
		return
	}
	start := time.Now()
	subs := s.store.All()

	for _, sub := range subs {
		sched := s.schedule(sub)
		if sched == nil {
			continue
		}

		now := s.now()
		if !sched.Observe(now) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		s.checker.Check(ctx, sub)
		cancel()
		sched.Dispatched(s.now())
	}

	// Drop schedules for pruned subscriptions.
	s.mu.Lock()
	if len(s.schedules) > len(subs) {
		live := make(map[models.PushIdentity]bool, len(subs))
		for _, sub := range subs {
			live[sub.Identity] = true
		}
		for id := range s.schedules {
			if !live[id] {
				delete(s.schedules, id)
			}
		}
	}
	s.mu.Unlock()

	observability.SweepDurationSeconds.Observe(time.Since(start).Seconds())
	if s.logger != nil {
		s.logger.Debug("sweep complete",
			zap.Int("subscribers", len(subs)),
			zap.Duration("duration", time.Since(start)))
	}
}
