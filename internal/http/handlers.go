package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/forecast"
	"github.com/swimcast/swimcast/internal/geocode"
	"github.com/swimcast/swimcast/internal/lifecycle"
	"github.com/swimcast/swimcast/internal/models"
	"github.com/swimcast/swimcast/internal/observability"
	"github.com/swimcast/swimcast/internal/subscription"
)

// ForecastSource supplies aggregated forecasts for the display endpoint.
type ForecastSource interface {
	GetForecast(ctx context.Context, loc models.Location) models.Forecast
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	forecasts      ForecastSource
	resolver       geocode.Resolver
	store          *subscription.Store
	onSubscribed   func(models.Subscription)
	vapidPublicKey string
	validate       *validator.Validate
	logger         *zap.Logger
	// cachePing, when set, is called by the health handler to check cache
	// reachability. Used when the backend is memcached.
	cachePing func() error
}

// NewHandler returns a new Handler. onSubscribed, when non-nil, runs after
// each successful registration (the sweeper uses it to arm the schedule).
func NewHandler(
	forecasts ForecastSource,
	resolver geocode.Resolver,
	store *subscription.Store,
	onSubscribed func(models.Subscription),
	vapidPublicKey string,
	logger *zap.Logger,
	cachePing func() error,
) *Handler {
	return &Handler{
		forecasts:      forecasts,
		resolver:       resolver,
		store:          store,
		onSubscribed:   onSubscribed,
		vapidPublicKey: vapidPublicKey,
		validate:       validator.New(),
		logger:         logger,
		cachePing:      cachePing,
	}
}

// subscribeRequest is the registration payload.
type subscribeRequest struct {
	Subscription     *models.PushIdentity `json:"subscription" validate:"required"`
	Locations        []models.Location    `json:"locations" validate:"dive"`
	NotificationTime string               `json:"notificationTime" validate:"omitempty,datetime=15:04"`
}

// PostSubscribe handles POST /api/subscribe.
func (h *Handler) PostSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}
	if req.Subscription == nil || req.Subscription.Zero() {
		writeError(w, r, http.StatusBadRequest, "NO_SUBSCRIPTION", "subscription is required")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_SUBSCRIPTION", err.Error())
		return
	}

	sub := models.Subscription{
		Identity:         *req.Subscription,
		Locations:        req.Locations,
		NotificationTime: req.NotificationTime,
	}
	created := h.store.Upsert(sub)
	observability.SubscriptionsGauge.Set(float64(h.store.Len()))
	if h.onSubscribed != nil {
		stored, ok := h.store.Get(sub.Identity)
		if ok {
			h.onSubscribed(stored)
		}
	}

	if logger := loggerFromRequest(r); logger != nil {
		logger.Info("subscription registered",
			zap.Bool("created", created),
			zap.Int("locations", len(sub.Locations)))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// dailyView decorates a daily summary with its verdict and display icon.
type dailyView struct {
	models.DailySummary
	Verdict models.Verdict `json:"verdict"`
	Icon    string         `json:"icon"`
}

// segmentView decorates a day-part segment with its verdict.
type segmentView struct {
	models.DaySegment
	Verdict models.Verdict `json:"verdict"`
}

type forecastResponse struct {
	Location  models.Location      `json:"location"`
	Daily     []dailyView          `json:"daily"`
	Segments  []segmentView        `json:"segments"`
	RawHourly []models.HourlyPoint `json:"rawHourly"`
	FetchedAt time.Time            `json:"fetchedAt"`
}

// GetForecast handles GET /api/forecast?latitude=&longitude=&name=.
// Display data for a client: per-day summaries with per-card verdicts.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("longitude"), 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", "latitude and longitude are required")
		return
	}
	loc := models.Location{
		Name:      strings.TrimSpace(q.Get("name")),
		Latitude:  lat,
		Longitude: lon,
	}

	fc := h.forecasts.GetForecast(r.Context(), loc)
	resp := forecastResponse{
		Location:  fc.Location,
		Daily:     make([]dailyView, 0, len(fc.Daily)),
		Segments:  make([]segmentView, 0, len(fc.Segments)),
		RawHourly: fc.RawHourly,
		FetchedAt: fc.FetchedAt,
	}
	for _, d := range fc.Daily {
		resp.Daily = append(resp.Daily, dailyView{
			DailySummary: d,
			Verdict:      forecast.Classify(d),
			Icon:         forecast.IconForCode(d.DominantWeatherCode),
		})
	}
	for _, s := range fc.Segments {
		resp.Segments = append(resp.Segments, segmentView{
			DaySegment: s,
			Verdict:    forecast.ClassifySegment(s),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSearch handles GET /api/search?q=. Geocoding failures degrade to an
// empty result list; the operational log is the only surfacing mechanism.
func (h *Handler) GetSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", "q is required")
		return
	}
	results, err := h.resolver.Search(r.Context(), query)
	if err != nil {
		if logger := loggerFromRequest(r); logger != nil {
			logger.Warn("geocode search failed", zap.String("query", query), zap.Error(err))
		}
		results = nil
	}
	if results == nil {
		results = []models.Location{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// GetVAPIDPublicKey handles GET /api/vapid-public-key.
func (h *Handler) GetVAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.vapidPublicKey})
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	statusCode := http.StatusOK
	checks := make(map[string]string)

	if lifecycle.IsShuttingDown() {
		status = "shutting-down"
		statusCode = http.StatusServiceUnavailable
	}
	if h.cachePing != nil {
		if h.cachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}

	resp := map[string]interface{}{
		"status":    status,
		"service":   "swimcast",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// MethodNotAllowedHandler answers a path match with the wrong verb in the
// standard error format. mux only emits 405 when one is installed; without
// it a method mismatch falls through to the 404 handler.
func MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed for this resource")
	})
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with
// code, message, and requestId (correlation ID) if available in context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID, _ = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// loggerFromRequest extracts the request-scoped logger set by the
// correlation middleware. Returns nil when absent.
func loggerFromRequest(r *http.Request) *zap.Logger {
	if v := r.Context().Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return nil
}
