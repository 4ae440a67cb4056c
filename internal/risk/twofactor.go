package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Tier is the two-factor tier used by periodic monitoring.
type Tier string

const (
	TierMinimal Tier = "Minimal"
	TierLow     Tier = "Low"
	TierMedium  Tier = "Medium"
	TierHigh    Tier = "High"
)

// Rank orders tiers by severity, Minimal lowest.
func (t Tier) Rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}

// Classify buckets v against the bands.
func (b Bands) Classify(v float64) Tier {
	switch {
	case v >= b.High:
		return TierHigh
	case v >= b.Medium:
		return TierMedium
	case v >= b.Low:
		return TierLow
	default:
		return TierMinimal
	}
}

// TwoFactorDetails holds the independently bucketed tiers.
type TwoFactorDetails struct {
	Rainfall   Tier  `json:"rainfall"`
	RiverLevel *Tier `json:"riverLevel"`
}

// TwoFactorResult is the periodic-monitoring outcome.
type TwoFactorResult struct {
	Tier      Tier             `json:"riskLevel"`
	Details   TwoFactorDetails `json:"details"`
	Timestamp time.Time        `json:"timestamp"`
}

// TwoFactorScorer classifies 24h rainfall (mm) and an optional river gauge
// level (m).
type TwoFactorScorer struct {
	rainfall Bands
	river    Bands
	clock    clockwork.Clock
}

// NewTwoFactorScorer creates a scorer. A nil clock uses real time.
func NewTwoFactorScorer(t Thresholds, clock clockwork.Clock) *TwoFactorScorer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TwoFactorScorer{rainfall: t.Rainfall24h, river: t.RiverLevel, clock: clock}
}

// Assess buckets rainfall and, when present, the river level. The overall
// tier is the more severe of the two; without a river level it is the
// rainfall tier alone.
func (s *TwoFactorScorer) Assess(rainfall24h float64, riverLevel *float64) (TwoFactorResult, error) {
	if invalidReading(rainfall24h) {
		return TwoFactorResult{}, fmt.Errorf("%w: rainfall must be >= 0, got %g", domain.ErrInvalidInput, rainfall24h)
	}
	if riverLevel != nil && invalidReading(*riverLevel) {
		return TwoFactorResult{}, fmt.Errorf("%w: river level must be >= 0, got %g", domain.ErrInvalidInput, *riverLevel)
	}

	details := TwoFactorDetails{Rainfall: s.rainfall.Classify(rainfall24h)}
	overall := details.Rainfall
	if riverLevel != nil {
		river := s.river.Classify(*riverLevel)
		details.RiverLevel = &river
		if river.Rank() > overall.Rank() {
			overall = river
		}
	}

	return TwoFactorResult{
		Tier:      overall,
		Details:   details,
		Timestamp: s.clock.Now().UTC(),
	}, nil
}

func invalidReading(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v < 0
}
