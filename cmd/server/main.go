package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/swimcast/swimcast/internal/cache"
	"github.com/swimcast/swimcast/internal/config"
	"github.com/swimcast/swimcast/internal/forecastsvc"
	"github.com/swimcast/swimcast/internal/geocode"
	httphandler "github.com/swimcast/swimcast/internal/http"
	"github.com/swimcast/swimcast/internal/lifecycle"
	"github.com/swimcast/swimcast/internal/models"
	"github.com/swimcast/swimcast/internal/notify"
	"github.com/swimcast/swimcast/internal/observability"
	"github.com/swimcast/swimcast/internal/provider"
	"github.com/swimcast/swimcast/internal/scheduler"
	"github.com/swimcast/swimcast/internal/subscription"
)

func main() {
	logger, err := observability.NewLogger()
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

	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}
	forecasts := forecastsvc.NewService(fetcher, cacheSvc, cfg.CacheTTL, logger)

	store := subscription.NewStore(cfg.DefaultNotificationTime)

	dispatcher, err := notify.NewWebPushDispatcher(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	if err != nil {
		logger.Fatal("web push dispatcher", zap.Error(err))
	}
	checker := notify.NewChecker(forecasts, dispatcher, store, logger)

	sweeper := scheduler.NewSweeper(store, checker, cfg.SweepInterval, cfg.RequestTimeout, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("sweeper", zap.Error(err))
	}

	if len(cfg.WarmLocations) > 0 {
		warmLocs := resolveWarmLocations(geocoder, cfg.WarmLocations, logger)
		warmer := cache.NewForecastWarmer(forecasts, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		warmer.Warm(warmCtx, warmLocs)
		warmCancel()
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(context.Background(), warmLocs, cfg.WarmInterval); err != nil && err != context.Canceled {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	var cachePing func() error
	if memcacheCloser != nil {
		cachePing = memcacheCloser.Ping
	}
	handler := httphandler.NewHandler(forecasts, geocoder, store, sweeper.Arm, cfg.VAPIDPublicKey, logger, cachePing)

	router := mux.NewRouter()
	router.MethodNotAllowedHandler = httphandler.MethodNotAllowedHandler()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.MethodNotAllowedHandler = httphandler.MethodNotAllowedHandler()
	apiRouter.Use(httphandler.RateLimitMiddleware(limiter))
	apiRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	apiRouter.HandleFunc("/subscribe", handler.PostSubscribe).Methods("POST")
	apiRouter.HandleFunc("/forecast", handler.GetForecast).Methods("GET")
	apiRouter.HandleFunc("/search", handler.GetSearch).Methods("GET")
	apiRouter.HandleFunc("/vapid-public-key", handler.GetVAPIDPublicKey).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	sweeper.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

// resolveWarmLocations turns configured place names into coordinates.
// Names that fail to resolve are skipped with a warning.
func resolveWarmLocations(resolver geocode.Resolver, names []string, logger *zap.Logger) []models.Location {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	locs := make([]models.Location, 0, len(names))
	for _, name := range names {
		loc, ok := resolver.Resolve(ctx, name)
		if !ok {
			logger.Warn("warm location not resolved", zap.String("name", name))
			continue
		}
		locs = append(locs, loc)
	}
	return locs
}
