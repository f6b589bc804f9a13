package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Forecast provider call rate by model. Watch for: error vs success ratio per model.
	ProviderCallsTotal *prometheus.CounterVec

	// Provider latency per request and model. Watch for: p95 > 2s (upstream degradation).
	ProviderCallDuration *prometheus.HistogramVec

	// Geocoding call rate. Watch for: resolution failures.
	GeocodeCallsTotal *prometheus.CounterVec

	// Forecast cache hits. Hit rate = hits/(hits+forecastBuildsTotal).
	CacheHitsTotal *prometheus.CounterVec

	// Full fetch+aggregate cycles (cache misses included).
	ForecastBuildsTotal prometheus.Counter

	// Duration of one subscriber sweep over the store.
	SweepDurationSeconds prometheus.Histogram

	// Notifications dispatched, labeled by subscriber-level verdict.
	NotificationsSentTotal *prometheus.CounterVec

	// Push deliveries that failed. Watch for: transport outages, stale identities.
	NotificationFailuresTotal prometheus.Counter

	// Subscriptions removed after the push service reported them gone.
	SubscriptionsPrunedTotal prometheus.Counter

	// Registered subscribers. Updated after each registration and prune.
	SubscriptionsGauge prometheus.Gauge

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Cache warming sweeps and their duration/errors.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram
	CacheWarmingErrorsTotal     prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providerCallsTotal",
			Help: "Total number of forecast provider calls by model",
		},
		[]string{"model", "status"},
	)
	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "providerCallDurationSeconds",
			Help:    "Forecast provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)
	GeocodeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocodeCallsTotal",
			Help: "Total number of geocoding search calls",
		},
		[]string{"status"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of forecast cache hits",
		},
		[]string{"cacheType"},
	)
	ForecastBuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forecastBuildsTotal",
			Help: "Total number of full forecast fetch+aggregate cycles",
		},
	)
	SweepDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweepDurationSeconds",
			Help:    "Duration of one subscriber sweep",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
	NotificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notificationsSentTotal",
			Help: "Notifications dispatched by subscriber-level verdict",
		},
		[]string{"verdict"},
	)
	NotificationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notificationFailuresTotal",
			Help: "Push deliveries that failed",
		},
	)
	SubscriptionsPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptionsPrunedTotal",
			Help: "Subscriptions removed after permanent push delivery failure",
		},
	)
	SubscriptionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscriptionsRegistered",
			Help: "Number of registered subscriptions",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Cache warming sweeps started",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Duration of a cache warming sweep",
			Buckets: prometheus.DefBuckets,
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming sweeps that had at least one failure",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		ProviderCallsTotal, ProviderCallDuration, GeocodeCallsTotal,
		CacheHitsTotal, ForecastBuildsTotal,
		SweepDurationSeconds,
		NotificationsSentTotal, NotificationFailuresTotal, SubscriptionsPrunedTotal, SubscriptionsGauge,
		RateLimitDeniedTotal,
		CacheWarmingTotal, CacheWarmingDurationSeconds, CacheWarmingErrorsTotal,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
