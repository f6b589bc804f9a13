package subscription

import (
	"testing"

	"github.com/swimcast/swimcast/internal/models"
)

func identity(endpoint string) models.PushIdentity {
	return models.PushIdentity{
		Endpoint: endpoint,
		Keys:     models.PushKeys{P256dh: "p256-" + endpoint, Auth: "auth-" + endpoint},
	}
}

func TestStore_UpsertNew(t *testing.T) {
	s := NewStore("07:00")
	created := s.Upsert(models.Subscription{
		Identity:  identity("e1"),
		Locations: []models.Location{{Name: "Praha", Latitude: 50.08, Longitude: 14.43}},
	})
	if !created {
		t.Error("Upsert of a new identity returned false, want true")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	got, ok := s.Get(identity("e1"))
	if !ok {
		t.Fatal("Get after Upsert returned false")
	}
	if got.NotificationTime != "07:00" {
		t.Errorf("NotificationTime = %q, want default 07:00", got.NotificationTime)
	}
}

func TestStore_UpsertSameIdentityUpdates(t *testing.T) {
	s := NewStore("07:00")
	id := identity("e1")
	s.Upsert(models.Subscription{
		Identity:         id,
		Locations:        []models.Location{{Name: "Praha", Latitude: 50.08, Longitude: 14.43}},
		NotificationTime: "07:00",
	})

	created := s.Upsert(models.Subscription{
		Identity:         id,
		Locations:        []models.Location{{Name: "Brno", Latitude: 49.19, Longitude: 16.61}},
		NotificationTime: "08:30",
	})
	if created {
		t.Error("Upsert of an existing identity returned true, want false")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (update in place)", s.Len())
	}
	got, _ := s.Get(id)
	if got.Locations[0].Name != "Brno" {
		t.Errorf("Locations[0].Name = %q, want Brno", got.Locations[0].Name)
	}
	if got.NotificationTime != "08:30" {
		t.Errorf("NotificationTime = %q, want 08:30", got.NotificationTime)
	}
}

func TestStore_UpsertOmittedFieldsKept(t *testing.T) {
	s := NewStore("07:00")
	id := identity("e1")
	s.Upsert(models.Subscription{
		Identity:         id,
		Locations:        []models.Location{{Name: "Praha", Latitude: 50.08, Longitude: 14.43}},
		NotificationTime: "06:15",
	})

	// Re-registration without locations or time keeps the stored values.
	s.Upsert(models.Subscription{Identity: id})
	got, _ := s.Get(id)
	if len(got.Locations) != 1 || got.Locations[0].Name != "Praha" {
		t.Errorf("Locations = %+v, want the original Praha entry", got.Locations)
	}
	if got.NotificationTime != "06:15" {
		t.Errorf("NotificationTime = %q, want 06:15", got.NotificationTime)
	}
}

func TestStore_UpsertDedupesLocationsByName(t *testing.T) {
	s := NewStore("07:00")
	s.Upsert(models.Subscription{
		Identity: identity("e1"),
		Locations: []models.Location{
			{Name: "Praha", Latitude: 50.08, Longitude: 14.43},
			{Name: "praha", Latitude: 50.08, Longitude: 14.43},
			{Name: "Brno", Latitude: 49.19, Longitude: 16.61},
		},
	})

	got, _ := s.Get(identity("e1"))
	if len(got.Locations) != 2 {
		t.Fatalf("len(Locations) = %d, want 2 (name uniqueness is case-insensitive)", len(got.Locations))
	}
	if got.Locations[0].Name != "Praha" || got.Locations[1].Name != "Brno" {
		t.Errorf("Locations = %+v, want first occurrences Praha, Brno", got.Locations)
	}
}

func TestStore_DifferentKeysAreDifferentSubscribers(t *testing.T) {
	s := NewStore("07:00")
	a := models.PushIdentity{Endpoint: "e", Keys: models.PushKeys{P256dh: "p1", Auth: "a1"}}
	b := models.PushIdentity{Endpoint: "e", Keys: models.PushKeys{P256dh: "p2", Auth: "a2"}}

	s.Upsert(models.Subscription{Identity: a})
	s.Upsert(models.Subscription{Identity: b})
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (same endpoint, different keys)", s.Len())
	}
}

func TestStore_AllPreservesOrder(t *testing.T) {
	s := NewStore("07:00")
	s.Upsert(models.Subscription{Identity: identity("e1")})
	s.Upsert(models.Subscription{Identity: identity("e2")})
	s.Upsert(models.Subscription{Identity: identity("e3")})

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(all))
	}
	for i, want := range []string{"e1", "e2", "e3"} {
		if all[i].Identity.Endpoint != want {
			t.Errorf("All()[%d].Endpoint = %q, want %q", i, all[i].Identity.Endpoint, want)
		}
	}
}

func TestStore_AllIsSnapshot(t *testing.T) {
	s := NewStore("07:00")
	s.Upsert(models.Subscription{Identity: identity("e1")})

	all := s.All()
	s.Upsert(models.Subscription{Identity: identity("e2")})
	if len(all) != 1 {
		t.Errorf("snapshot length changed to %d after Upsert, want 1", len(all))
	}
}

func TestStore_Remove(t *testing.T) {
	s := NewStore("07:00")
	s.Upsert(models.Subscription{Identity: identity("e1")})
	s.Upsert(models.Subscription{Identity: identity("e2")})

	if !s.Remove(identity("e1")) {
		t.Error("Remove of a registered identity returned false")
	}
	if s.Remove(identity("e1")) {
		t.Error("second Remove returned true, want false")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d after Remove, want 1", s.Len())
	}
	if _, ok := s.Get(identity("e1")); ok {
		t.Error("Get returned a removed subscription")
	}
}
