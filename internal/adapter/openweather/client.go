// Package openweather reads recent rainfall from the OpenWeatherMap API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

const source = "openweather"

// Client fetches hourly weather history.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client. An empty baseURL uses DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// Rainfall24h returns the total rainfall in mm over the last 24 hours.
func (c *Client) Rainfall24h(ctx context.Context, at domain.Coordinates) (float64, error) {
	hours, err := c.HourlyHistory(ctx, at)
	if err != nil {
		return 0, err
	}
	return Calculate24HourRainfall(hours), nil
}

// HourlyHistory returns the hourly observations starting 24 hours ago.
func (c *Client) HourlyHistory(ctx context.Context, at domain.Coordinates) ([]Hour, error) {
	if c.apiKey == "" {
		return nil, errors.New("openweather API key is not configured")
	}
	params := url.Values{
		"lat":   {strconv.FormatFloat(at.Lat, 'f', 4, 64)},
		"lon":   {strconv.FormatFloat(at.Lon, 'f', 4, 64)},
		"dt":    {strconv.FormatInt(c.clock.Now().Add(-24*time.Hour).Unix(), 10)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}

	begin := time.Now()
	hours, err := c.doRequest(ctx, c.baseURL+"/onecall/timemachine?"+params.Encode())
	c.metrics.ExternalDuration.WithLabelValues(source).Observe(time.Since(begin).Seconds())
	if err != nil {
		c.metrics.ExternalRequests.WithLabelValues(source, "error").Inc()
		return nil, err
	}
	c.metrics.ExternalRequests.WithLabelValues(source, "success").Inc()
	return hours, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]Hour, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather history request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var owResp response
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// One Call 3.0 renamed "hourly" to "data".
	if len(owResp.Hourly) > 0 {
		return owResp.Hourly, nil
	}
	return owResp.Data, nil
}

// Calculate24HourRainfall sums the one-hour rain volume of every hour.
// Hours without a rain reading count as zero.
func Calculate24HourRainfall(hours []Hour) float64 {
	var total float64
	for _, h := range hours {
		if h.Rain != nil {
			total += h.Rain.OneHour
		}
	}
	return total
}

// Hour is one hourly observation.
type Hour struct {
	Timestamp int64 `json:"dt"`
	Rain      *Rain `json:"rain,omitempty"`
}

// Rain holds precipitation volume in mm.
type Rain struct {
	OneHour float64 `json:"1h"`
}

type response struct {
	Hourly []Hour `json:"hourly"`
	Data   []Hour `json:"data"`
}
