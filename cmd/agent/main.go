package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/cache"
	"github.com/swimcast/swimcast/internal/config"
	"github.com/swimcast/swimcast/internal/forecast"
	"github.com/swimcast/swimcast/internal/forecastsvc"
	"github.com/swimcast/swimcast/internal/geocode"
	"github.com/swimcast/swimcast/internal/localstate"
	"github.com/swimcast/swimcast/internal/models"
	"github.com/swimcast/swimcast/internal/notify"
	"github.com/swimcast/swimcast/internal/observability"
	"github.com/swimcast/swimcast/internal/provider"
	"github.com/swimcast/swimcast/internal/scheduler"
)

// The agent is the single-user counterpart of the server: it keeps its
// locations and notification time in local JSON files, prints the outlook
// at startup, and fires one desktop-style notification per day through
// the display dispatcher.
func main() {
	logger, err := observability.NewConsoleLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	geocoder := geocode.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeLanguage, cfg.GeocodeCountry, cfg.ProviderTimeout, logger)

	fetcher, err := provider.NewOpenMeteoClient(provider.Config{
		BaseURL:          cfg.ProviderBaseURL,
		HighResModel:     cfg.HighResModel,
		CoarseModel:      cfg.CoarseModel,
		HighResHours:     cfg.HighResHours,
		CoarseHours:      cfg.CoarseHours,
		Timezone:         cfg.Timezone,
		IncludeRadiation: cfg.IncludeRadiation,
		Timeout:          cfg.ProviderTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("forecast provider", zap.Error(err))
	}

	forecasts := forecastsvc.NewService(fetcher, cache.NewInMemoryCache(), cfg.CacheTTL, logger)

	state := localstate.NewStore(cfg.StateDir, geocoder, logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locations, err := state.LoadLocations(ctx)
	if err != nil {
		logger.Fatal("load locations", zap.Error(err))
	}
	if len(locations) == 0 {
		logger.Warn("no locations configured", zap.String("state_dir", cfg.StateDir))
	}
	settings, err := state.LoadSettings(cfg.DefaultNotificationTime)
	if err != nil {
		logger.Fatal("load settings", zap.Error(err))
	}

	printOutlook(ctx, forecasts, locations)

	target, err := scheduler.ParseTimeOfDay(settings.NotificationTime)
	if err != nil {
		logger.Fatal("notification time", zap.String("value", settings.NotificationTime), zap.Error(err))
	}

	checker := notify.NewChecker(forecasts, notify.NewDisplayDispatcher(logger), nil, logger)
	sub := models.Subscription{
		Locations:        locations,
		NotificationTime: settings.NotificationTime,
	}

	sched := scheduler.NewSchedule()
	sched.Configure(target)

	strategy := scheduler.NewStrategy(cfg.SchedulerStrategy == "timer", cfg.PollInterval)
	logger.Info("agent running",
		zap.String("strategy", cfg.SchedulerStrategy),
		zap.String("notification_time", target.String()),
		zap.Int("locations", len(locations)))

	strategy.Run(ctx, sched, func(now time.Time) {
		checkCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		checker.Check(checkCtx, sub)
	})

	logger.Info("agent stopped")
}

// printOutlook writes the multi-day outlook for each location to stdout.
func printOutlook(ctx context.Context, forecasts *forecastsvc.Service, locations []models.Location) {
	for _, loc := range locations {
		if loc.Latitude == 0 && loc.Longitude == 0 {
			continue
		}
		fc := forecasts.GetForecast(ctx, loc)
		if fc.Empty() {
			fmt.Printf("%s: forecast unavailable\n", loc.Name)
			continue
		}
		fmt.Printf("%s\n", loc.Name)
		for _, d := range fc.Daily {
			verdict := forecast.Classify(d)
			fmt.Printf("  %s %s  %4.1f / %4.1f °C  %4.1f mm  %s\n",
				d.Date, forecast.IconForCode(d.DominantWeatherCode), d.TempMax, d.TempMin, d.TotalPrecipitation, verdict)
		}
	}
}
