package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/http"
	"github.com/couchcryptid/flood-risk-service/internal/assessment"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/monitor"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/risk"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type memAreas struct {
	profiles []domain.AreaProfile
	events   []domain.FloodEvent
}

func (m *memAreas) SaveAreaProfile(_ context.Context, p domain.AreaProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.profiles = append(m.profiles, p)
	return nil
}

func (m *memAreas) AppendFloodEvent(_ context.Context, e domain.FloodEvent) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	m.events = append(m.events, e)
	return fmt.Sprintf("event-%d", len(m.events)), nil
}

func (m *memAreas) FindAreaProfile(_ context.Context, key domain.AreaKey) (domain.AreaProfile, error) {
	key = key.Normalized()
	for _, p := range m.profiles {
		k := p.Key()
		if k.State == key.State && k.City == key.City && (key.Area == "" || k.Area == key.Area) {
			return p, nil
		}
	}
	return domain.AreaProfile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, key)
}

func (m *memAreas) RecentEvents(_ context.Context, key domain.AreaKey, limit int) ([]domain.FloodEvent, error) {
	key = key.Normalized()
	var out []domain.FloodEvent
	for _, e := range m.events {
		k := e.Key()
		if k.State == key.State && k.City == key.City && (key.Area == "" || k.Area == key.Area) {
			out = append(out, e)
		}
	}
	return domain.MostRecent(out, limit), nil
}

type failingAssessor struct {
	err error
}

func (f failingAssessor) AreaReport(context.Context, domain.AreaKey) (assessment.Report, error) {
	return assessment.Report{}, f.err
}

func (f failingAssessor) ScoreMetrics(context.Context, risk.Metrics, domain.AreaProfile) (risk.RiskResult, error) {
	return risk.RiskResult{}, f.err
}

func (f failingAssessor) TwoFactor(context.Context, float64, *float64) (risk.TwoFactorResult, error) {
	return risk.TwoFactorResult{}, f.err
}

type staticMonitor []monitor.Result

func (s staticMonitor) Latest() []monitor.Result { return s }

// --- helpers ---

var testNow = time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func patnaProfile() domain.AreaProfile {
	return domain.AreaProfile{
		State:             "Bihar",
		City:              "Patna",
		Area:              "Gandhi Maidan",
		Coordinates:       domain.Coordinates{Lat: 25.6093, Lon: 85.1376},
		Elevation:         domain.Measure{Value: 53, Unit: domain.UnitMeters},
		DistanceFromRiver: domain.Measure{Value: 1.2, Unit: domain.UnitKilometers},
		DrainageSystem:    domain.DrainageModerate,
		UrbanDevelopment:  domain.UrbanHigh,
		PopulationDensity: domain.Measure{Value: 15000, Unit: domain.UnitPerSqKm},
		SoilType:          "Alluvial",
		VegetationCover:   domain.Measure{Value: 15, Unit: domain.UnitPercent},
		FloodProne:        true,
		RiverBasin:        "Ganga",
	}
}

func seededAreas() *memAreas {
	areas := &memAreas{profiles: []domain.AreaProfile{patnaProfile()}}
	for _, e := range [][3]float64{{2018, 9, 75000}, {2020, 8, 82000}, {2019, 7, 78000}} {
		areas.events = append(areas.events, domain.FloodEvent{
			State: "Bihar", City: "Patna", Area: "Gandhi Maidan",
			Year: int(e[0]), Month: int(e[1]), Level: e[2], Impact: "Severe",
		})
	}
	return areas
}

func newService(areas *memAreas) *assessment.Service {
	return assessment.New(assessment.Config{
		Store:      areas,
		Thresholds: risk.DefaultThresholds(),
		Clock:      clockwork.NewFakeClockAt(testNow),
		Logger:     discardLogger(),
		Metrics:    observability.NewMetricsForTesting(),
	})
}

func newTestServer(opts httpadapter.Options) *httpadapter.Server {
	if opts.Ready == nil {
		opts.Ready = &mockReadiness{}
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.NewRegistry()
	}
	opts.Logger = discardLogger()
	return httpadapter.NewServer(":0", opts)
}

func do(t *testing.T, srv *httpadapter.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- operational endpoints ---

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})

	rec := do(t, srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})

	rec := do(t, srv, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(httpadapter.Options{
		Assessor: newService(seededAreas()),
		Ready:    &mockReadiness{err: errors.New("database unreachable")},
	})

	rec := do(t, srv, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "database unreachable", body["error"])
}

func TestMetricsEndpointServesGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "floodrisk_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas()), Gatherer: reg})

	rec := do(t, srv, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "floodrisk_test_total 1")
}

// --- area reports ---

func TestAreaRisk_ReturnsReport(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})

	rec := do(t, srv, http.MethodGet, "/v1/areas/bihar/patna/gandhi%20maidan/risk", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[assessment.Report](t, rec)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "Patna", report.City)
	assert.Equal(t, 72, report.FloodRisk.Score)
	assert.Equal(t, risk.SeverityHigh, report.FloodRisk.Tier)
	assert.True(t, report.FloodRisk.Degraded)
	assert.Len(t, report.HistoricalEvents, 3)
}

func TestAreaRisk_CityLevelUsesFirstArea(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})

	rec := do(t, srv, http.MethodGet, "/v1/areas/Bihar/Patna/risk", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Gandhi Maidan", decode[assessment.Report](t, rec).Area)
}

func TestAreaRisk_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("lookup: %w", domain.ErrProfileNotFound), http.StatusNotFound},
		{"insufficient history", domain.ErrInsufficientHistory, http.StatusUnprocessableEntity},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(httpadapter.Options{Assessor: failingAssessor{err: tt.err}})

			rec := do(t, srv, http.MethodGet, "/v1/areas/bihar/patna/risk", nil)

			assert.Equal(t, tt.want, rec.Code)
			body := decode[map[string]string](t, rec)
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["error"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestAreaRisk_UnknownAreaIs404(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})

	rec := do(t, srv, http.MethodGet, "/v1/areas/kerala/kochi/risk", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- writes ---

func TestPutProfileThenAssess(t *testing.T) {
	areas := &memAreas{}
	srv := newTestServer(httpadapter.Options{Assessor: newService(areas), Areas: areas})

	p := patnaProfile()
	p.State, p.City, p.Area = "", "", ""
	rec := do(t, srv, http.MethodPut, "/v1/areas/Bihar/Patna/Kankarbagh", p)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, areas.profiles, 1)
	assert.Equal(t, "Kankarbagh", areas.profiles[0].Area)

	rec = do(t, srv, http.MethodPost, "/v1/events", domain.FloodEvent{
		State: "Bihar", City: "Patna", Area: "Kankarbagh", Year: 2021, Month: 8, Level: 90000, Impact: "High",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "event-1", decode[map[string]string](t, rec)["id"])

	rec = do(t, srv, http.MethodGet, "/v1/areas/bihar/patna/kankarbagh/risk", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostEvent_InvalidIs400(t *testing.T) {
	areas := &memAreas{}
	srv := newTestServer(httpadapter.Options{Assessor: newService(areas), Areas: areas})

	rec := do(t, srv, http.MethodPost, "/v1/events", domain.FloodEvent{State: "Bihar", City: "Patna", Month: 13})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWritesWithoutStorageAre503(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})

	rec := do(t, srv, http.MethodPost, "/v1/events", domain.FloodEvent{})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// --- direct assessments ---

func TestFourFactor_ScoresMetrics(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})
	m := risk.Metrics{
		Level:         risk.Level{Current: 2, Discharge: 20000},
		Rainfall:      risk.Reading{Current: 10, Threshold: 100},
		SoilMoisture:  risk.SoilMoisture{Current: 95, Threshold: 90, Trend: risk.TrendIncreasing},
		BasinCapacity: risk.Reading{Current: 40, Threshold: 80},
	}
	want, err := risk.NewFourFactorScorer(risk.DefaultThresholds()).Compute(m, patnaProfile())
	require.NoError(t, err)

	rec := do(t, srv, http.MethodPost, "/v1/assessments/four-factor", map[string]any{
		"metrics": m,
		"profile": patnaProfile(),
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[risk.RiskResult](t, rec)
	assert.Equal(t, want.Score, got.Score)
	assert.Equal(t, want.Tier, got.Tier)
	assert.Equal(t, want.Factors, got.Factors)
}

func TestFourFactor_MissingFieldsIs400(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})

	rec := do(t, srv, http.MethodPost, "/v1/assessments/four-factor", map[string]any{"profile": patnaProfile()})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTwoFactor(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})

	rec := do(t, srv, http.MethodPost, "/v1/assessments/two-factor", map[string]any{
		"rainfall24h": 120.0,
		"riverLevel":  4.5,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[risk.TwoFactorResult](t, rec)
	assert.Equal(t, risk.TierHigh, got.Tier)
	assert.Equal(t, risk.TierMedium, got.Details.Rainfall)
	require.NotNil(t, got.Details.RiverLevel)
	assert.Equal(t, risk.TierHigh, *got.Details.RiverLevel)
	assert.True(t, testNow.Equal(got.Timestamp))
}

func TestTwoFactor_BadRequests(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})

	for name, body := range map[string]any{
		"missing rainfall": map[string]any{"riverLevel": 2.0},
		"negative":         map[string]any{"rainfall24h": -5.0},
		"unknown field":    map[string]any{"rainfall24h": 5.0, "snow": 1},
		"not an object":    []int{1, 2},
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/v1/assessments/two-factor", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// --- monitor ---

func TestMonitorLatest(t *testing.T) {
	results := staticMonitor{{Location: "Mumbai", Rainfall24h: 180, Alerted: true}}
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas()), Monitor: results})

	rec := do(t, srv, http.MethodGet, "/v1/monitor/latest", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]monitor.Result](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "Mumbai", got[0].Location)
	assert.True(t, got[0].Alerted)
}

func TestMonitorLatest_DisabledIs503(t *testing.T) {
	srv := newTestServer(httpadapter.Options{Assessor: newService(seededAreas())})

	rec := do(t, srv, http.MethodGet, "/v1/monitor/latest", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyAll(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, httpadapter.ReadyAll{}.CheckReadiness(ctx))
	assert.NoError(t, httpadapter.ReadyAll{&mockReadiness{}, &mockReadiness{}}.CheckReadiness(ctx))

	err := httpadapter.ReadyAll{&mockReadiness{}, &mockReadiness{err: errors.New("monitor warming up")}}.CheckReadiness(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor warming up")
}
