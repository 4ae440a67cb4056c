package risk

import (
	"math"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Severity is the four-factor tier.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeveritySevere   Severity = "severe"
)

// Factor weights of the composite score.
const (
	weightLevel    = 0.4
	weightRainfall = 0.2
	weightMoisture = 0.2
	weightCapacity = 0.2
)

// Factors holds the per-factor sub-scores, each one of 20, 40, 60, 80, 100.
type Factors struct {
	LevelRisk    int `json:"levelRisk"`
	RainfallRisk int `json:"rainfallRisk"`
	MoistureRisk int `json:"moistureRisk"`
	CapacityRisk int `json:"capacityRisk"`
}

// Score is the weighted composite, rounded half up.
func (f Factors) Score() int {
	return roundHalfUp(float64(f.LevelRisk)*weightLevel +
		float64(f.RainfallRisk)*weightRainfall +
		float64(f.MoistureRisk)*weightMoisture +
		float64(f.CapacityRisk)*weightCapacity)
}

// RiskResult is the four-factor outcome with its advisory.
type RiskResult struct {
	Score           int              `json:"score"`
	Tier            Severity         `json:"level"`
	Factors         Factors          `json:"factors"`
	Basin           string           `json:"basin"`
	Summary         string           `json:"summary"`
	Details         FactorDetails    `json:"details"`
	Recommendations []string         `json:"recommendations"`
	EvacuationZones []EvacuationZone `json:"evacuationZones"`
	Degraded        bool             `json:"degraded"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// TierForScore maps a composite score onto a tier. The mapping is total:
// >=80 severe, >=60 high, >=40 moderate, else low.
func TierForScore(score int) Severity {
	switch {
	case score >= 80:
		return SeveritySevere
	case score >= 60:
		return SeverityHigh
	case score >= 40:
		return SeverityModerate
	default:
		return SeverityLow
	}
}

// LevelRisk buckets discharge against basin cutoffs. Equal to a cutoff counts
// as reaching it.
func LevelRisk(discharge float64, t BasinThresholds) int {
	switch {
	case discharge >= t.Severe:
		return 100
	case discharge >= t.High:
		return 80
	case discharge >= t.Moderate:
		return 60
	case discharge >= t.Low:
		return 40
	default:
		return 20
	}
}

// RainfallRisk buckets current/threshold rainfall.
func RainfallRisk(r Reading) int {
	ratio, ok := readingRatio(r)
	switch {
	case !ok:
		return 20
	case ratio >= 1.5:
		return 100
	case ratio >= 1.2:
		return 80
	case ratio >= 1.0:
		return 60
	case ratio >= 0.8:
		return 40
	default:
		return 20
	}
}

// MoistureRisk buckets current/threshold soil moisture.
func MoistureRisk(r Reading) int {
	ratio, ok := readingRatio(r)
	switch {
	case !ok:
		return 20
	case ratio >= 0.95:
		return 100
	case ratio >= 0.9:
		return 80
	case ratio >= 0.85:
		return 60
	case ratio >= 0.8:
		return 40
	default:
		return 20
	}
}

// CapacityRisk buckets current/threshold basin capacity. Less remaining
// capacity means more risk.
func CapacityRisk(r Reading) int {
	ratio, ok := readingRatio(r)
	switch {
	case !ok:
		return 20
	case ratio <= 0.5:
		return 100
	case ratio <= 0.6:
		return 80
	case ratio <= 0.7:
		return 60
	case ratio <= 0.8:
		return 40
	default:
		return 20
	}
}

// readingRatio returns current/threshold. 0/0 has no ratio; n/0 is +Inf.
func readingRatio(r Reading) (float64, bool) {
	if r.Threshold == 0 {
		if r.Current == 0 {
			return 0, false
		}
		return math.Copysign(math.Inf(1), float64(r.Current)), true
	}
	return float64(r.Current) / float64(r.Threshold), true
}

// FourFactorScorer scores derived metrics against basin thresholds.
type FourFactorScorer struct {
	thresholds Thresholds
}

// NewFourFactorScorer creates a scorer bound to the given thresholds.
func NewFourFactorScorer(t Thresholds) *FourFactorScorer {
	return &FourFactorScorer{thresholds: t}
}

// Factors computes the sub-scores and reports the basin actually used.
func (s *FourFactorScorer) Factors(m Metrics, profile domain.AreaProfile) (Factors, string) {
	name, basin, _ := s.thresholds.Basin(profile.RiverBasin)
	return Factors{
		LevelRisk:    LevelRisk(m.Level.Discharge, basin),
		RainfallRisk: RainfallRisk(m.Rainfall),
		MoistureRisk: MoistureRisk(m.SoilMoisture.Reading()),
		CapacityRisk: CapacityRisk(m.BasinCapacity),
	}, name
}

// Compute scores the metrics and attaches the advisory for the profile.
func (s *FourFactorScorer) Compute(m Metrics, profile domain.AreaProfile) (RiskResult, error) {
	if err := profile.Validate(); err != nil {
		return RiskResult{}, err
	}
	if err := m.Validate(); err != nil {
		return RiskResult{}, err
	}

	factors, basin := s.Factors(m, profile)
	score := factors.Score()
	tier := TierForScore(score)
	adv := GenerateAdvisory(score, tier, factors, profile)

	result := RiskResult{
		Score:           score,
		Tier:            tier,
		Factors:         factors,
		Basin:           basin,
		Summary:         adv.Summary,
		Details:         adv.Details,
		Recommendations: adv.Recommendations,
		EvacuationZones: adv.EvacuationZones,
		Degraded:        m.Degraded,
	}
	if len(m.Warnings) > 0 {
		result.Warnings = append([]string(nil), m.Warnings...)
	}
	return result, nil
}
