package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/lifecycle"
	"github.com/swimcast/swimcast/internal/models"
	"github.com/swimcast/swimcast/internal/subscription"
)

type recordingChecker struct {
	mu    sync.Mutex
	calls []models.Subscription
}

func (c *recordingChecker) Check(ctx context.Context, sub models.Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, sub)
}

func (c *recordingChecker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func testSub(endpoint, notifyAt string) models.Subscription {
	return models.Subscription{
		Identity: models.PushIdentity{
			Endpoint: endpoint,
			Keys:     models.PushKeys{P256dh: "p", Auth: "a"},
		},
		Locations:        []models.Location{{Name: "Praha", Latitude: 50.08, Longitude: 14.43}},
		NotificationTime: notifyAt,
	}
}

func newTestSweeper(store *subscription.Store, checker Checker) *Sweeper {
	return NewSweeper(store, checker, 30*time.Second, time.Second, zap.NewNop())
}

func TestSweeper_FiresOncePerWindow(t *testing.T) {
	store := subscription.NewStore("07:00")
	store.Upsert(testSub("https://push.example/1", "07:00"))

	checker := &recordingChecker{}
	s := newTestSweeper(store, checker)

	clock := at(6, 59, 40)
	s.now = func() time.Time { return clock }

	// Sweep every 20 seconds across the window.
	for i := 0; i < 10; i++ {
		s.sweep()
		clock = clock.Add(20 * time.Second)
	}

	if checker.count() != 1 {
		t.Errorf("checker calls = %d, want exactly 1", checker.count())
	}
}

func TestSweeper_FiresForEachSubscriber(t *testing.T) {
	store := subscription.NewStore("07:00")
	store.Upsert(testSub("https://push.example/1", "07:00"))
	store.Upsert(testSub("https://push.example/2", "07:00"))
	store.Upsert(testSub("https://push.example/3", "08:00"))

	checker := &recordingChecker{}
	s := newTestSweeper(store, checker)
	s.now = func() time.Time { return at(7, 0, 15) }

	s.sweep()

	if checker.count() != 2 {
		t.Errorf("checker calls = %d, want 2 (only the 07:00 subscribers)", checker.count())
	}
}

func TestSweeper_ArmRetargets(t *testing.T) {
	store := subscription.NewStore("07:00")
	sub := testSub("https://push.example/1", "07:00")
	store.Upsert(sub)

	checker := &recordingChecker{}
	s := newTestSweeper(store, checker)
	s.now = func() time.Time { return at(9, 30, 0) }

	s.sweep()
	if checker.count() != 0 {
		t.Fatalf("checker calls = %d, want 0 before retarget", checker.count())
	}

	// Subscriber moves the notification to 09:30.
	sub.NotificationTime = "09:30"
	store.Upsert(sub)
	s.Arm(sub)

	s.sweep()
	if checker.count() != 1 {
		t.Errorf("checker calls = %d, want 1 after retarget", checker.count())
	}
}

func TestSweeper_InvalidTimeStaysIdle(t *testing.T) {
	store := subscription.NewStore("07:00")
	store.Upsert(testSub("https://push.example/1", "not-a-time"))

	checker := &recordingChecker{}
	s := newTestSweeper(store, checker)
	s.now = func() time.Time { return at(7, 0, 0) }

	s.sweep()
	if checker.count() != 0 {
		t.Errorf("checker calls = %d, want 0 for unparseable time", checker.count())
	}
}

func TestSweeper_SkipsWhileDraining(t *testing.T) {
	store := subscription.NewStore("07:00")
	store.Upsert(testSub("https://push.example/1", "07:00"))

	checker := &recordingChecker{}
	s := newTestSweeper(store, checker)
	s.now = func() time.Time { return at(7, 0, 15) }

	lifecycle.SetShuttingDown(true)
	defer lifecycle.SetShuttingDown(false)

	s.sweep()
	if checker.count() != 0 {
		t.Errorf("checker calls = %d during shutdown, want 0", checker.count())
	}
}

func TestSweeper_PrunesRemovedSchedules(t *testing.T) {
	store := subscription.NewStore("07:00")
	sub := testSub("https://push.example/1", "07:00")
	store.Upsert(sub)

	checker := &recordingChecker{}
	s := newTestSweeper(store, checker)
	s.now = func() time.Time { return at(6, 0, 0) }

	s.sweep()
	s.mu.Lock()
	before := len(s.schedules)
	s.mu.Unlock()
	if before != 1 {
		t.Fatalf("schedules = %d, want 1", before)
	}

	store.Remove(sub.Identity)
	s.sweep()
	s.mu.Lock()
	after := len(s.schedules)
	s.mu.Unlock()
	if after != 0 {
		t.Errorf("schedules = %d after removal, want 0", after)
	}
}
