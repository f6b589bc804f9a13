package subscription

import (
	"sync"

	"github.com/swimcast/swimcast/internal/models"
)

// Store is the keyed mapping from push identity to subscription. Mutated by
// the registration handler, read by the sweep; a mutex keeps the two apart.
// Staleness by one sweep cycle is acceptable, so All hands out a snapshot.
type Store struct {
	mu   sync.RWMutex
	subs []models.Subscription

	defaultTime string
}

// NewStore creates an empty store. defaultTime fills in the notification
// time for registrations that omit one.
func NewStore(defaultTime string) *Store {
	if defaultTime == "" {
		defaultTime = "07:00"
	}
	return &Store{defaultTime: defaultTime}
}

// Upsert registers or updates a subscription. Identity is compared by
// structural equality of the push descriptor. On update, locations and
// notification time replace the stored values only when provided, matching
// the registration contract. Returns true when a new entry was appended.
func (s *Store) Upsert(sub models.Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub.Locations = models.DedupeLocations(sub.Locations)

	for i := range s.subs {
		if s.subs[i].Identity == sub.Identity {
			if len(sub.Locations) > 0 {
				s.subs[i].Locations = sub.Locations
			}
			if sub.NotificationTime != "" {
				s.subs[i].NotificationTime = sub.NotificationTime
			}
			return false
		}
	}

	if sub.NotificationTime == "" {
		sub.NotificationTime = s.defaultTime
	}
	s.subs = append(s.subs, sub)
	return true
}

// All returns a snapshot of the full ordered subscription sequence.
func (s *Store) All() []models.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

// Get returns the subscription for the identity, if registered.
func (s *Store) Get(id models.PushIdentity) (models.Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.subs {
		if s.subs[i].Identity == id {
			return s.subs[i], true
		}
	}
	return models.Subscription{}, false
}

// Remove drops the subscription for the identity. Used to prune identities
// the push service reports as permanently gone.
func (s *Store) Remove(id models.PushIdentity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.subs {
		if s.subs[i].Identity == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered subscriptions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
