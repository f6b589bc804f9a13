package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/models"
	"github.com/swimcast/swimcast/internal/observability"
)

// ForecastSource is implemented by the service layer. Used by ForecastWarmer
// to avoid a circular dependency on the service package.
type ForecastSource interface {
	GetForecast(ctx context.Context, loc models.Location) models.Forecast
}

// ForecastWarmer warms the cache by prefetching forecasts for a list of
// locations, so the sweep minute starts from warm data.
type ForecastWarmer struct {
	source ForecastSource
	logger *zap.Logger
}

// NewForecastWarmer creates a ForecastWarmer that uses the given source and logger.
func NewForecastWarmer(source ForecastSource, logger *zap.Logger) *ForecastWarmer {
	return &ForecastWarmer{source: source, logger: logger}
}

// Warm fetches forecasts for each location concurrently, populating the
// cache via the source. A location that yields no data counts as a failure.
func (w *ForecastWarmer) Warm(ctx context.Context, locations []models.Location) {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming forecast cache", zap.Int("locations", len(locations)))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0
	for _, loc := range locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if fc := w.source.GetForecast(ctx, loc); fc.Empty() {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if failures > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
	}
	if w.logger != nil {
		w.logger.Info("forecast cache warming complete",
			zap.Int("locations", len(locations)),
			zap.Int("failures", failures),
			zap.Float64("duration_seconds", duration))
	}
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval until ctx is done.
func (w *ForecastWarmer) WarmPeriodic(ctx context.Context, locations []models.Location, interval time.Duration) error {
	w.Warm(ctx, locations)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Warm(ctx, locations)
		}
	}
}
