// Package assessment gathers the inputs for an area's risk assessment, runs
// the risk engine and assembles the report.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/risk"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSoilLookback is the soil-moisture window ending now.
const DefaultSoilLookback = 10 * 24 * time.Hour

// ProfileStore looks up area profiles and flood history.
type ProfileStore interface {
	FindAreaProfile(ctx context.Context, key domain.AreaKey) (domain.AreaProfile, error)
	RecentEvents(ctx context.Context, key domain.AreaKey, limit int) ([]domain.FloodEvent, error)
}

// SoilSource fetches a soil-moisture series for a point and date range.
type SoilSource interface {
	SoilMoistureSeries(ctx context.Context, at domain.Coordinates, start, end time.Time) ([]domain.SoilSample, error)
}

// Report is the full assessment of one area.
type Report struct {
	ID               string                  `json:"id"`
	State            string                  `json:"state"`
	City             string                  `json:"city"`
	Area             string                  `json:"area"`
	GeneratedAt      time.Time               `json:"generatedAt"`
	CurrentMetrics   risk.Metrics            `json:"currentMetrics"`
	HistoricalEvents []domain.FloodEvent     `json:"historicalEvents"`
	Characteristics  []domain.Characteristic `json:"characteristics"`
	FloodRisk        risk.RiskResult         `json:"floodRisk"`
}

// Config holds the service collaborators. Soil may be nil, in which case
// every report uses the fallback soil moisture and is marked degraded.
type Config struct {
	Store        ProfileStore
	Soil         SoilSource
	Thresholds   risk.Thresholds
	SoilLookback time.Duration
	Clock        clockwork.Clock
	Logger       *slog.Logger
	Metrics      *observability.Metrics
	Tracer       trace.Tracer
}

// Service runs assessments. It holds no per-request state.
type Service struct {
	store      ProfileStore
	soil       SoilSource
	strategies *risk.Registry
	fourFactor *risk.FourFactorScorer
	twoFactor  *risk.TwoFactorScorer
	lookback   time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.SoilLookback <= 0 {
		cfg.SoilLookback = DefaultSoilLookback
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.Tracer()
	}
	return &Service{
		store:      cfg.Store,
		soil:       cfg.Soil,
		strategies: risk.NewRegistry(cfg.Thresholds, cfg.Clock),
		fourFactor: risk.NewFourFactorScorer(cfg.Thresholds),
		twoFactor:  risk.NewTwoFactorScorer(cfg.Thresholds, cfg.Clock),
		lookback:   cfg.SoilLookback,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
	}
}

// AreaReport assesses the area identified by key with the four-factor
// strategy. An empty key.Area selects the first area of the city.
func (s *Service) AreaReport(ctx context.Context, key domain.AreaKey) (report Report, err error) {
	ctx, span := s.tracer.Start(ctx, "assessment.AreaReport", trace.WithAttributes(
		attribute.String("area.key", key.Normalized().String()),
	))
	start := s.clock.Now()
	defer func() {
		s.observe(risk.StrategyFourFactor, start, report.FloodRisk.Degraded, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	profile, err := s.store.FindAreaProfile(ctx, key)
	if err != nil {
		return Report{}, err
	}
	events, err := s.store.RecentEvents(ctx, key, domain.MaxRecentEvents)
	if err != nil {
		return Report{}, fmt.Errorf("load flood events: %w", err)
	}
	soil := s.soilSeries(ctx, profile.Coordinates)

	strategy, ok := s.strategies.Get(risk.StrategyFourFactor)
	if !ok {
		return Report{}, errors.New("four-factor strategy is not registered")
	}
	outcome, err := strategy.Assess(risk.Input{Events: events, Profile: profile, Soil: soil})
	if err != nil {
		return Report{}, err
	}

	report = Report{
		ID:               uuid.NewString(),
		State:            profile.State,
		City:             profile.City,
		Area:             profile.Area,
		GeneratedAt:      s.clock.Now().UTC(),
		CurrentMetrics:   *outcome.Metrics,
		HistoricalEvents: domain.MostRecent(events, domain.MaxRecentEvents),
		Characteristics:  profile.Characteristics(),
		FloodRisk:        *outcome.FourFactor,
	}
	span.SetAttributes(
		attribute.Int("risk.score", report.FloodRisk.Score),
		attribute.String("risk.tier", string(report.FloodRisk.Tier)),
		attribute.Bool("risk.degraded", report.FloodRisk.Degraded),
	)
	if report.FloodRisk.Degraded {
		s.logger.Warn("assessment used fallback data",
			"area", profile.Key().String(),
			"warnings", report.FloodRisk.Warnings,
		)
	}
	return report, nil
}

// ScoreMetrics runs the four-factor scorer on caller-supplied metrics.
func (s *Service) ScoreMetrics(ctx context.Context, m risk.Metrics, profile domain.AreaProfile) (result risk.RiskResult, err error) {
	_, span := s.tracer.Start(ctx, "assessment.ScoreMetrics")
	start := s.clock.Now()
	defer func() {
		s.observe(risk.StrategyFourFactor, start, result.Degraded, err)
		span.End()
	}()
	return s.fourFactor.Compute(m, profile)
}

// TwoFactor classifies 24h rainfall (mm) and an optional river level (m).
func (s *Service) TwoFactor(ctx context.Context, rainfall24h float64, riverLevel *float64) (result risk.TwoFactorResult, err error) {
	_, span := s.tracer.Start(ctx, "assessment.TwoFactor")
	start := s.clock.Now()
	defer func() {
		s.observe(risk.StrategyTwoFactor, start, false, err)
		span.End()
	}()
	return s.twoFactor.Assess(rainfall24h, riverLevel)
}

// soilSeries fetches the lookback window ending now. Failures are carried
// in the series so the engine can fall back.
func (s *Service) soilSeries(ctx context.Context, at domain.Coordinates) *domain.SoilSeries {
	if s.soil == nil {
		return nil
	}
	end := s.clock.Now().UTC()
	samples, err := s.soil.SoilMoistureSeries(ctx, at, end.Add(-s.lookback), end)
	if err != nil {
		s.logger.Warn("soil moisture fetch failed", "lat", at.Lat, "lon", at.Lon, "error", err)
		return &domain.SoilSeries{Err: err}
	}
	return &domain.SoilSeries{Samples: samples}
}

func (s *Service) observe(strategy string, start time.Time, degraded bool, err error) {
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case degraded:
		outcome = "degraded"
	}
	s.metrics.Assessments.WithLabelValues(strategy, outcome).Inc()
	s.metrics.AssessmentDuration.WithLabelValues(strategy).Observe(s.clock.Since(start).Seconds())
}
