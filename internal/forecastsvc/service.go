package forecastsvc

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/cache"
	"github.com/swimcast/swimcast/internal/forecast"
	"github.com/swimcast/swimcast/internal/models"
	"github.com/swimcast/swimcast/internal/observability"
	"github.com/swimcast/swimcast/internal/provider"
)

// Service orchestrates forecast retrieval using cache-aside: cache lookup
// first, fetch+aggregate on miss, cache populated on success.
type Service struct {
	fetcher provider.Fetcher
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewService creates a Service. TTL specifies the cache expiration for
// aggregated forecasts.
func NewService(fetcher provider.Fetcher, cache cache.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// cacheKey derives a stable key from coordinates. Rounding to 4 decimals
// (~11 m) merges keys for the same geocoded place.
func cacheKey(loc models.Location) string {
	return fmt.Sprintf("%.4f,%.4f", loc.Latitude, loc.Longitude)
}

// GetForecast returns the aggregated forecast for the location. Every
// failure path degrades: cache errors fall through to a fetch, fetch
// failures yield empty series, and the aggregate of empty input is an
// empty forecast. GetForecast never fails.
func (s *Service) GetForecast(ctx context.Context, loc models.Location) models.Forecast {
	key := cacheKey(loc)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("forecast cache get failed", zap.String("key", key), zap.Error(err))
		}
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("forecast").Inc()
		if s.logger != nil {
			s.logger.Debug("forecast cache hit", zap.String("key", key))
		}
		cached.Location = loc
		return cached
	}

	observability.ForecastBuildsTotal.Inc()
	highRes, coarse := s.fetcher.FetchBoth(ctx, loc)
	fc := forecast.Aggregate(highRes, coarse, time.Now())
	fc.Location = loc

	if fc.Empty() {
		// Nothing usable this cycle; do not cache the gap.
		if s.logger != nil {
			s.logger.Debug("forecast unavailable", zap.String("location", loc.Name))
		}
		return fc
	}

	if setErr := s.cache.Set(ctx, key, fc, s.ttl); setErr != nil {
		if s.logger != nil {
			s.logger.Warn("forecast cache set failed", zap.String("key", key), zap.Error(setErr))
		}
	}
	return fc
}
