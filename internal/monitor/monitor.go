// Package monitor periodically assesses a fixed set of locations with the
// two-factor strategy and publishes alerts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/alert"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/risk"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the time between sweeps.
const DefaultInterval = time.Hour

// DefaultLocation is monitored when none are configured.
var DefaultLocation = domain.Location{Name: "Mumbai", Coordinates: domain.Coordinates{Lat: 19.0760, Lon: 72.8777}}

const (
	publishAttempts = 3
	maxConcurrent   = 4
)

// RainfallSource returns rainfall in mm over the last 24 hours.
type RainfallSource interface {
	Rainfall24h(ctx context.Context, at domain.Coordinates) (float64, error)
}

// RiverLevelSource returns the current river gauge level in meters. ok is
// false when no gauge covers the location.
type RiverLevelSource interface {
	RiverLevel(ctx context.Context, at domain.Coordinates) (level float64, ok bool, err error)
}

// AlertPublisher delivers alerts downstream.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []domain.Alert) error
}

// Result is the latest outcome for one location. Error is set, and the
// assessment is empty, when the location was skipped.
type Result struct {
	Location    string               `json:"location"`
	Coordinates domain.Coordinates   `json:"coordinates"`
	Rainfall24h float64              `json:"rainfall24h"`
	RiverLevel  *float64             `json:"riverLevel,omitempty"`
	Assessment  risk.TwoFactorResult `json:"assessment"`
	Alerted     bool                 `json:"alerted"`
	Error       string               `json:"error,omitempty"`
	CheckedAt   time.Time            `json:"checkedAt"`
}

// Config holds the monitor collaborators. River, Policy and Publisher are
// optional; without a policy or publisher no alerts are sent.
type Config struct {
	Locations []domain.Location
	Interval  time.Duration
	Strategy  risk.Strategy
	Rainfall  RainfallSource
	River     RiverLevelSource
	Policy    *alert.Policy
	Publisher AlertPublisher
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Monitor runs the sweep loop.
type Monitor struct {
	locations []domain.Location
	interval  time.Duration
	strategy  risk.Strategy
	rainfall  RainfallSource
	river     RiverLevelSource
	policy    *alert.Policy
	publisher AlertPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready  atomic.Bool
	mu     sync.RWMutex
	latest []Result
}

// New creates a Monitor. It rejects strategies other than two-factor since
// rainfall and river level are the only inputs the sweep collects.
func New(cfg Config) (*Monitor, error) {
	if cfg.Strategy == nil || cfg.Strategy.Name() != risk.StrategyTwoFactor {
		return nil, errors.New("monitor requires the two-factor strategy")
	}
	if cfg.Rainfall == nil {
		return nil, errors.New("monitor requires a rainfall source")
	}
	if len(cfg.Locations) == 0 {
		cfg.Locations = []domain.Location{DefaultLocation}
	}
	for _, l := range cfg.Locations {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("monitor location %q: %w", l.Name, err)
		}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Monitor{
		locations: cfg.Locations,
		interval:  cfg.Interval,
		strategy:  cfg.Strategy,
		rainfall:  cfg.Rainfall,
		river:     cfg.River,
		policy:    cfg.Policy,
		publisher: cfg.Publisher,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// CheckReadiness returns nil once the first sweep has completed.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("monitor has not completed a sweep yet")
	}
	return nil
}

// Latest returns a copy of the most recent sweep results.
func (m *Monitor) Latest() []Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Result, len(m.latest))
	copy(out, m.latest)
	return out
}

// Run sweeps immediately and then every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started", "locations", len(m.locations), "interval", m.interval)
	m.metrics.MonitorRunning.Set(1)
	defer m.metrics.MonitorRunning.Set(0)

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	m.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			m.Sweep(ctx)
		}
	}
}

// Sweep assesses every location once, up to maxConcurrent at a time. A
// failing location is logged, counted and skipped; the rest of the sweep
// continues. Results keep the configured location order.
func (m *Monitor) Sweep(ctx context.Context) []Result {
	start := m.clock.Now()
	results := make([]Result, len(m.locations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, loc := range m.locations {
		g.Go(func() error {
			results[i] = m.sweepLocation(gctx, loc)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return results
	}

	var alerts []domain.Alert
	for i := range results {
		if results[i].Error != "" {
			continue
		}
		if a, ok := m.alertFor(results[i]); ok {
			results[i].Alerted = true
			alerts = append(alerts, a)
		}
	}
	if len(alerts) > 0 {
		m.publish(ctx, alerts)
	}

	m.mu.Lock()
	m.latest = results
	m.mu.Unlock()

	m.metrics.MonitorSweeps.Inc()
	m.metrics.MonitorSweepDuration.Observe(m.clock.Since(start).Seconds())
	m.ready.Store(true)
	return results
}

func (m *Monitor) sweepLocation(ctx context.Context, loc domain.Location) Result {
	res, err := m.assess(ctx, loc)
	if err != nil {
		m.logger.Warn("location assessment failed, skipping",
			"location", loc.Name,
			"error", err,
		)
		m.metrics.MonitorLocationErrors.Inc()
		res.Error = err.Error()
		return res
	}

	tier := res.Assessment.Tier
	m.metrics.MonitorTier.WithLabelValues(loc.Name).Set(float64(tier.Rank()))
	m.logger.Info("location assessed",
		"location", loc.Name,
		"tier", tier,
		"rainfall_24h", res.Rainfall24h,
	)
	if tier == risk.TierHigh {
		m.logger.Warn("high flood risk detected", "location", loc.Name, "rainfall_24h", res.Rainfall24h)
	}
	return res
}

func (m *Monitor) assess(ctx context.Context, loc domain.Location) (Result, error) {
	res := Result{Location: loc.Name, Coordinates: loc.Coordinates, CheckedAt: m.clock.Now().UTC()}

	rainfall, err := m.rainfall.Rainfall24h(ctx, loc.Coordinates)
	if err != nil {
		return res, fmt.Errorf("fetch rainfall: %w", err)
	}
	res.Rainfall24h = rainfall

	if m.river != nil {
		level, ok, err := m.river.RiverLevel(ctx, loc.Coordinates)
		if err != nil {
			return res, fmt.Errorf("fetch river level: %w", err)
		}
		if ok {
			res.RiverLevel = &level
		}
	}

	outcome, err := m.strategy.Assess(risk.Input{Rainfall24h: res.Rainfall24h, RiverLevel: res.RiverLevel})
	if err != nil {
		return res, err
	}
	res.Assessment = *outcome.TwoFactor
	return res, nil
}

func (m *Monitor) alertFor(res Result) (domain.Alert, bool) {
	if m.policy == nil || m.publisher == nil {
		return domain.Alert{}, false
	}
	tier := res.Assessment.Tier
	ok, err := m.policy.ShouldAlert(alert.Input{
		Location:    res.Location,
		Tier:        string(tier),
		TierRank:    tier.Rank(),
		Rainfall24h: res.Rainfall24h,
		RiverLevel:  res.RiverLevel,
	})
	if err != nil {
		m.logger.Warn("alert policy failed", "location", res.Location, "error", err)
		m.metrics.AlertErrors.Inc()
		return domain.Alert{}, false
	}
	if !ok {
		return domain.Alert{}, false
	}
	return domain.Alert{
		ID:          uuid.NewString(),
		Location:    res.Location,
		Lat:         res.Coordinates.Lat,
		Lon:         res.Coordinates.Lon,
		Tier:        string(tier),
		Rainfall24h: res.Rainfall24h,
		RiverLevel:  res.RiverLevel,
		Message:     fmt.Sprintf("%s flood risk in %s", tier, res.Location),
		AssessedAt:  res.Assessment.Timestamp,
	}, true
}

// publish retries with exponential backoff: 200ms doubling, capped at 5s.
func (m *Monitor) publish(ctx context.Context, alerts []domain.Alert) {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = m.publisher.PublishAlerts(ctx, alerts); err == nil {
			m.metrics.AlertsPublished.Add(float64(len(alerts)))
			return
		}
		m.logger.Error("publish alerts failed", "attempt", attempt, "count", len(alerts), "error", err)
		if attempt == publishAttempts || !sharedretry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
	m.metrics.AlertErrors.Add(float64(len(alerts)))
}
