package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mumbai = domain.Coordinates{Lat: 19.0760, Lon: 72.8777}

func testClient(baseURL string, clock clockwork.Clock) *Client {
	return NewClient("test-key", baseURL, 5*time.Second, clock,
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCalculate24HourRainfall(t *testing.T) {
	hours := []Hour{
		{Rain: &Rain{OneHour: 2.5}},
		{},
		{Rain: &Rain{OneHour: 10}},
		{Rain: &Rain{}},
	}
	assert.InDelta(t, 12.5, Calculate24HourRainfall(hours), 1e-9)
	assert.Zero(t, Calculate24HourRainfall(nil))
}

func TestClient_Rainfall24h(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/onecall/timemachine", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("appid"))
		assert.Equal(t, "19.0760", q.Get("lat"))
		assert.Equal(t, "72.8777", q.Get("lon"))
		assert.Equal(t, strconv.FormatInt(now.Add(-24*time.Hour).Unix(), 10), q.Get("dt"))
		_, _ = io.WriteString(w, `{"hourly":[{"dt":1,"rain":{"1h":40}},{"dt":2},{"dt":3,"rain":{"1h":75.5}}]}`)
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, clockwork.NewFakeClockAt(now)).Rainfall24h(context.Background(), mumbai)
	require.NoError(t, err)
	assert.InDelta(t, 115.5, got, 1e-9)
}

func TestClient_Rainfall24h_DataField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"dt":1,"rain":{"1h":3}}]}`)
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, nil).Rainfall24h(context.Background(), mumbai)
	require.NoError(t, err)
	assert.InDelta(t, 3, got, 1e-9)
}

func TestClient_Rainfall24h_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"cod":401}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, nil).Rainfall24h(context.Background(), mumbai)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")

	noKey := NewClient("", srv.URL, time.Second, nil, observability.NewMetricsForTesting(), slog.Default())
	_, err = noKey.Rainfall24h(context.Background(), mumbai)
	require.Error(t, err)
}
