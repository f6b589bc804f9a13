package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/forecast"
	"github.com/swimcast/swimcast/internal/models"
	"github.com/swimcast/swimcast/internal/observability"
)

const (
	notificationTitle = "48-hour outlook"
	notificationIcon  = "icons/icon-192.png"
	notificationBadge = "icons/icon-192.png"
)

// ForecastSource supplies aggregated forecasts; failures surface as empty
// forecasts, never as errors.
type ForecastSource interface {
	GetForecast(ctx context.Context, loc models.Location) models.Forecast
}

// Pruner removes a subscription the push service reports as gone.
type Pruner interface {
	Remove(id models.PushIdentity) bool
}

// Checker is the per-subscriber pipeline: fetch forecasts for all
// locations, fold each into the two-day lookahead verdict, and dispatch a
// single combined notification when anything warrants one.
type Checker struct {
	forecasts  ForecastSource
	dispatcher Dispatcher
	pruner     Pruner
	logger     *zap.Logger
}

// NewChecker creates a Checker. pruner may be nil when the transport never
// reports permanent failures (the in-process display dispatcher).
func NewChecker(forecasts ForecastSource, dispatcher Dispatcher, pruner Pruner, logger *zap.Logger) *Checker {
	return &Checker{
		forecasts:  forecasts,
		dispatcher: dispatcher,
		pruner:     pruner,
		logger:     logger,
	}
}

// Check runs the pipeline once for the subscription. Forecast fetches for
// the subscriber's locations run concurrently; classification and dispatch
// are sequential. Locations without coordinates are skipped.
func (c *Checker) Check(ctx context.Context, sub models.Subscription) {
	type result struct {
		loc     models.Location
		verdict models.Verdict
	}

	results := make([]result, len(sub.Locations))
	var wg sync.WaitGroup
	for i, loc := range sub.Locations {
		if loc.Latitude == 0 && loc.Longitude == 0 {
			results[i] = result{loc: loc, verdict: models.VerdictNone}
			continue
		}
		i, loc := i, loc
		wg.Add(1)
		go func() {
			defer wg.Done()
			fc := c.forecasts.GetForecast(ctx, loc)
			results[i] = result{loc: loc, verdict: forecast.Lookahead(fc.Daily)}
		}()
	}
	wg.Wait()

	var messages []string
	overall := models.VerdictNone
	for _, r := range results {
		switch r.verdict {
		case models.VerdictRain:
			messages = append(messages, fmt.Sprintf("🌧️ %s: rain is likely within the next 48 h", r.loc.Name))
			overall = models.VerdictRain
		case models.VerdictSwim:
			messages = append(messages, fmt.Sprintf("🏖️ %s: the next 48 h look like swimming weather!", r.loc.Name))
			if overall == models.VerdictNone {
				overall = models.VerdictSwim
			}
		}
	}

	if len(messages) == 0 {
		if c.logger != nil {
			c.logger.Debug("no verdict warrants a notification",
				zap.Int("locations", len(sub.Locations)))
		}
		return
	}

	n := models.Notification{
		Title: notificationTitle,
		Body:  strings.Join(messages, "\n"),
		Icon:  notificationIcon,
		Badge: notificationBadge,
	}
	if err := c.dispatcher.Dispatch(ctx, sub.Identity, n); err != nil {
		observability.NotificationFailuresTotal.Inc()
		if errors.Is(err, ErrSubscriptionGone) && c.pruner != nil {
			if c.pruner.Remove(sub.Identity) {
				observability.SubscriptionsPrunedTotal.Inc()
				observability.SubscriptionsGauge.Dec()
				if c.logger != nil {
					c.logger.Info("pruned stale push subscription")
				}
			}
			return
		}
		if c.logger != nil {
			c.logger.Warn("notification dispatch failed", zap.Error(err))
		}
		return
	}
	observability.NotificationsSentTotal.WithLabelValues(string(overall)).Inc()
	if c.logger != nil {
		c.logger.Info("notification dispatched",
			zap.String("verdict", string(overall)),
			zap.Int("locations", len(sub.Locations)))
	}
}
