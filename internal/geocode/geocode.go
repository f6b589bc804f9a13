package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/models"
	"github.com/swimcast/swimcast/internal/observability"
)

// Resolver turns a place-name query into candidate locations.
type Resolver interface {
	Search(ctx context.Context, query string) ([]models.Location, error)
	Resolve(ctx context.Context, name string) (models.Location, bool)
}

// maxResults matches the search contract: up to 5 candidates.
const maxResults = 5

var ErrNoMatch = errors.New("no geocoding match")

// Client queries an Open-Meteo style geocoding endpoint.
type Client struct {
	baseURL     string
	language    string
	countryCode string
	client      *http.Client
	logger      *zap.Logger
}

func NewClient(baseURL, language, countryCode string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		language:    language,
		countryCode: countryCode,
		logger:      logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type searchResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Admin1    string  `json:"admin1"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// Search returns up to 5 candidate locations for the query.
func (c *Client) Search(ctx context.Context, query string) ([]models.Location, error) {
	baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid geocode URL: %w", err)
	}

	params := url.Values{}
	params.Set("name", query)
	params.Set("count", fmt.Sprintf("%d", maxResults))
	if c.language != "" {
		params.Set("language", c.language)
	}
	if c.countryCode != "" {
		params.Set("countryCode", c.countryCode)
	}
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		observability.GeocodeCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.GeocodeCallsTotal.WithLabelValues("error").Inc()
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("geocode: HTTP %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		observability.GeocodeCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("parse geocode response: %w", err)
	}
	observability.GeocodeCallsTotal.WithLabelValues("success").Inc()

	out := make([]models.Location, 0, len(sr.Results))
	for _, r := range sr.Results {
		out = append(out, models.Location{
			Name:      r.Name,
			Admin1:    r.Admin1,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
		if len(out) == maxResults {
			break
		}
	}
	return out, nil
}

// Resolve returns the first match for the name. Failures degrade to a
// not-found result; the location is simply skipped for the cycle.
func (c *Client) Resolve(ctx context.Context, name string) (models.Location, bool) {
	results, err := c.Search(ctx, name)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("geocode resolve failed", zap.String("name", name), zap.Error(err))
		}
		return models.Location{}, false
	}
	if len(results) == 0 {
		if c.logger != nil {
			c.logger.Warn("geocode resolve failed", zap.String("name", name), zap.Error(ErrNoMatch))
		}
		return models.Location{}, false
	}
	return results[0], true
}
