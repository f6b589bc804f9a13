package localstate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/geocode"
	"github.com/swimcast/swimcast/internal/models"
)

const (
	locationsFile = "locations.json"
	settingsFile  = "settings.json"
)

// Settings is the agent's persisted preferences.
type Settings struct {
	NotificationTime string `json:"notificationTime"`
}

// Store reads and writes the agent's state files under a single directory.
// Locations missing coordinates are geocoded on load and the resolved
// coordinates are written back, so the lookup happens once per new entry.
type Store struct {
	dir      string
	resolver geocode.Resolver
	logger   *zap.Logger
}

func NewStore(dir string, resolver geocode.Resolver, logger *zap.Logger) *Store {
	return &Store{dir: dir, resolver: resolver, logger: logger}
}

// LoadLocations reads locations.json and fills in missing coordinates via
// the resolver. A missing file yields an empty list. Entries that cannot be
// resolved are kept without coordinates and skipped by the pipeline.
func (s *Store) LoadLocations(ctx context.Context) ([]models.Location, error) {
	path := filepath.Join(s.dir, locationsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var locs []models.Location
	if err := json.Unmarshal(data, &locs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	locs = models.DedupeLocations(locs)

	resolvedAny := false
	for i, loc := range locs {
		if loc.Latitude != 0 || loc.Longitude != 0 || loc.Name == "" {
			continue
		}
		resolved, ok := s.resolver.Resolve(ctx, loc.Name)
		if !ok {
			s.logger.Warn("location not resolved", zap.String("name", loc.Name))
			continue
		}
		locs[i].Latitude = resolved.Latitude
		locs[i].Longitude = resolved.Longitude
		resolvedAny = true
	}
	if resolvedAny {
		if err := s.SaveLocations(locs); err != nil {
			s.logger.Warn("save resolved locations", zap.Error(err))
		}
	}
	return locs, nil
}

func (s *Store) SaveLocations(locs []models.Location) error {
	return s.writeFile(locationsFile, locs)
}

// LoadSettings reads settings.json, applying defaultTime when the file is
// absent or the time is empty.
func (s *Store) LoadSettings(defaultTime string) (Settings, error) {
	settings := Settings{NotificationTime: defaultTime}
	path := filepath.Join(s.dir, settingsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse %s: %w", path, err)
	}
	if settings.NotificationTime == "" {
		settings.NotificationTime = defaultTime
	}
	return settings, nil
}

func (s *Store) SaveSettings(settings Settings) error {
	return s.writeFile(settingsFile, settings)
}

func (s *Store) writeFile(name string, v interface{}) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
