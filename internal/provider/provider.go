package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/models"
	"github.com/swimcast/swimcast/internal/observability"
)

// Fetcher issues the two overlapping model queries for a location. A failed
// model degrades to an empty series; FetchBoth never returns an error.
type Fetcher interface {
	FetchBoth(ctx context.Context, loc models.Location) (highRes, coarse models.HourlySeries)
}

var (
	ErrUpstreamStatus   = errors.New("upstream returned non-OK status")
	ErrMalformedPayload = errors.New("malformed provider payload")
)

// Config carries the provider endpoint and model parameters.
type Config struct {
	BaseURL          string
	HighResModel     string
	CoarseModel      string
	HighResHours     int
	CoarseHours      int
	Timezone         string
	IncludeRadiation bool
	Timeout          time.Duration
}

// OpenMeteoClient fetches hourly series from an Open-Meteo style endpoint.
// Calls run through a shared circuit breaker; while the circuit is open
// every fetch degrades immediately to an empty series.
type OpenMeteoClient struct {
	cfg     Config
	tz      *time.Location
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewOpenMeteoClient builds a client. The configured timezone must resolve;
// hourly timestamps are parsed in it.
func NewOpenMeteoClient(cfg Config, logger *zap.Logger) (*OpenMeteoClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider: base URL is required")
	}
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("provider: load timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "forecast_provider",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoClient{
		cfg:     cfg,
		tz:      tz,
		breaker: cb,
		logger:  logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// hourlyPayload mirrors the provider's JSON: ISO-8601 local time strings
// plus parallel numeric arrays.
type hourlyPayload struct {
	Hourly struct {
		Time              []string  `json:"time"`
		Temperature       []float64 `json:"temperature_2m"`
		Precipitation     []float64 `json:"precipitation"`
		PrecipProbability []float64 `json:"precipitation_probability"`
		WeatherCode       []int     `json:"weathercode"`
		Radiation         []float64 `json:"shortwave_radiation"`
	} `json:"hourly"`
}

// FetchBoth issues the high-res and coarse queries concurrently and waits
// for both. Each failure is logged and replaced by an empty series; callers
// treat empty as "forecast unavailable". No retry: the next scheduled cycle
// retries naturally.
func (c *OpenMeteoClient) FetchBoth(ctx context.Context, loc models.Location) (models.HourlySeries, models.HourlySeries) {
	var highRes, coarse models.HourlySeries
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		s, err := c.fetchModel(ctx, loc, c.cfg.HighResModel, c.cfg.HighResHours, c.cfg.IncludeRadiation)
		if err != nil {
			c.logFetchFailure(loc, c.cfg.HighResModel, err)
			return
		}
		highRes = s
	}()
	go func() {
		defer wg.Done()
		s, err := c.fetchModel(ctx, loc, c.cfg.CoarseModel, c.cfg.CoarseHours, false)
		if err != nil {
			c.logFetchFailure(loc, c.cfg.CoarseModel, err)
			return
		}
		coarse = s
	}()
	wg.Wait()

	return highRes, coarse
}

func (c *OpenMeteoClient) logFetchFailure(loc models.Location, model string, err error) {
	if c.logger != nil {
		c.logger.Warn("forecast fetch failed",
			zap.String("location", loc.Name),
			zap.String("model", model),
			zap.Error(err))
	}
}

func (c *OpenMeteoClient) fetchModel(ctx context.Context, loc models.Location, model string, hours int, radiation bool) (models.HourlySeries, error) {
	start := time.Now()

	req, err := c.buildRequest(ctx, loc, model, hours, radiation)
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues(model, "error").Inc()
		return models.HourlySeries{}, fmt.Errorf("build request: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamStatus, resp.StatusCode)
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("read response body: %w", readErr)
		}
		return body, nil
	})

	duration := time.Since(start).Seconds()
	observability.ProviderCallDuration.WithLabelValues(model).Observe(duration)
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues(model, statusLabel(err)).Inc()
		return models.HourlySeries{}, err
	}
	observability.ProviderCallsTotal.WithLabelValues(model, "success").Inc()

	var payload hourlyPayload
	if err := json.Unmarshal(result.([]byte), &payload); err != nil {
		return models.HourlySeries{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return c.toSeries(payload)
}

func (c *OpenMeteoClient) buildRequest(ctx context.Context, loc models.Location, model string, hours int, radiation bool) (*http.Request, error) {
	baseURL, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider URL: %w", err)
	}

	fields := []string{"temperature_2m", "precipitation", "precipitation_probability", "weathercode"}
	if radiation {
		fields = append(fields, "shortwave_radiation")
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	params.Set("hourly", strings.Join(fields, ","))
	params.Set("forecast_hours", strconv.Itoa(hours))
	params.Set("model", model)
	params.Set("timezone", c.cfg.Timezone)
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// toSeries parses the payload's time axis; the numeric arrays are carried
// as-is and indexed defensively downstream.
func (c *OpenMeteoClient) toSeries(payload hourlyPayload) (models.HourlySeries, error) {
	times := make([]time.Time, 0, len(payload.Hourly.Time))
	for _, raw := range payload.Hourly.Time {
		t, err := parseLocalTime(raw, c.tz)
		if err != nil {
			return models.HourlySeries{}, fmt.Errorf("%w: time %q", ErrMalformedPayload, raw)
		}
		times = append(times, t)
	}
	return models.HourlySeries{
		Times:             times,
		Temperature:       payload.Hourly.Temperature,
		Precipitation:     payload.Hourly.Precipitation,
		PrecipProbability: payload.Hourly.PrecipProbability,
		WeatherCode:       payload.Hourly.WeatherCode,
		Radiation:         payload.Hourly.Radiation,
	}, nil
}

// parseLocalTime accepts the provider's zone-less local form and full RFC3339.
func parseLocalTime(s string, tz *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, tz); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func statusLabel(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, ErrUpstreamStatus):
		return "upstream_error"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}
