// Package nasapower fetches soil-moisture series from the NASA POWER daily
// point API.
package nasapower

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// DefaultBaseURL is the NASA POWER daily point endpoint.
const DefaultBaseURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

// Parameter is the POWER parameter for surface soil wetness (0-1).
const Parameter = "SOILWET1"

const (
	source     = "nasa_power"
	dateLayout = "20060102"
)

// ErrMalformed means the response did not contain a usable series.
var ErrMalformed = errors.New("malformed NASA POWER response")

// Client reads soil wetness series from NASA POWER.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a NASA POWER client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// SoilMoistureSeries returns daily soil wetness samples between start and end
// (inclusive, UTC dates) in chronological order.
func (c *Client) SoilMoistureSeries(ctx context.Context, at domain.Coordinates, start, end time.Time) ([]domain.SoilSample, error) {
	params := url.Values{
		"parameters": {Parameter},
		"community":  {"AG"},
		"start":      {start.UTC().Format(dateLayout)},
		"end":        {end.UTC().Format(dateLayout)},
		"latitude":   {strconv.FormatFloat(at.Lat, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(at.Lon, 'f', 4, 64)},
		"format":     {"JSON"},
	}

	begin := time.Now()
	samples, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.ExternalDuration.WithLabelValues(source).Observe(time.Since(begin).Seconds())
	if err != nil {
		c.metrics.ExternalRequests.WithLabelValues(source, "error").Inc()
		c.logger.Warn("nasa power request failed", "lat", at.Lat, "lon", at.Lon, "error", err)
		return nil, err
	}
	c.metrics.ExternalRequests.WithLabelValues(source, "success").Inc()
	return samples, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.SoilSample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("soil moisture request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("nasa power API error: status %d: %s", resp.StatusCode, body)
	}

	var powerResp response
	if err := json.NewDecoder(resp.Body).Decode(&powerResp); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformed, err)
	}
	return powerResp.samples()
}

// NASA POWER response types.

type response struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

// samples converts the date-keyed map into a chronological series. Fill
// values are kept; the risk engine discards them.
func (r response) samples() ([]domain.SoilSample, error) {
	series, ok := r.Properties.Parameter[Parameter]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s parameter", ErrMalformed, Parameter)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: empty %s series", ErrMalformed, Parameter)
	}

	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]domain.SoilSample, 0, len(keys))
	for _, k := range keys {
		ts, err := time.Parse(dateLayout, k)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date key %q", ErrMalformed, k)
		}
		out = append(out, domain.SoilSample{Timestamp: ts, Value: series[k]})
	}
	return out, nil
}
