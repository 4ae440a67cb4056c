package nasapower

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/cache"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// SeriesSource fetches a soil-moisture series.
type SeriesSource interface {
	SoilMoistureSeries(ctx context.Context, at domain.Coordinates, start, end time.Time) ([]domain.SoilSample, error)
}

// CachedSource memoizes series in a cache.Cache. Failures are never cached.
type CachedSource struct {
	inner   SeriesSource
	cache   cache.Cache
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedSource wraps inner with a cache whose entries live for ttl.
func NewCachedSource(inner SeriesSource, c cache.Cache, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *CachedSource {
	return &CachedSource{inner: inner, cache: c, ttl: ttl, metrics: metrics, logger: logger}
}

func (s *CachedSource) SoilMoistureSeries(ctx context.Context, at domain.Coordinates, start, end time.Time) ([]domain.SoilSample, error) {
	key := fmt.Sprintf("soil:%.4f,%.4f:%s-%s", at.Lat, at.Lon, start.UTC().Format(dateLayout), end.UTC().Format(dateLayout))

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("soil cache read failed", "key", key, "error", err)
	}
	if ok {
		var samples []domain.SoilSample
		if err := json.Unmarshal(data, &samples); err == nil {
			s.metrics.CacheLookups.WithLabelValues(source, "hit").Inc()
			return samples, nil
		}
	}
	s.metrics.CacheLookups.WithLabelValues(source, "miss").Inc()

	samples, err := s.inner.SoilMoistureSeries(ctx, at, start, end)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(samples); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("soil cache write failed", "key", key, "error", err)
		}
	}
	return samples, nil
}
