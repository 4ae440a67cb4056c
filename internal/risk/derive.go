package risk

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const (
	// levelScale converts discharge (m³/s) into the display level unit.
	levelScale = 10000.0

	// rainfallScale converts discharge into the rainfall proxy unit.
	rainfallScale = 1000.0

	// currentLevelWindow is how many of the newest events feed the current level.
	currentLevelWindow = 3

	// basinCapacityThreshold is the fixed capacity cutoff.
	basinCapacityThreshold = 80

	// trendDelta is the mean per-sample change that counts as a trend.
	trendDelta = 0.1

	// Fallback soil moisture used when the series is unusable.
	fallbackMoistureCurrent   = 75
	fallbackMoistureThreshold = 90

	// nasaFillValue marks missing samples in NASA POWER series.
	nasaFillValue = -999.0
)

// Reading is a current value paired with the threshold it is judged against.
type Reading struct {
	Current   int `json:"current"`
	Threshold int `json:"threshold"`
}

// Level reports a discharge-derived level. Discharge (m³/s) drives scoring;
// Current is the scaled display value.
type Level struct {
	Current   int     `json:"current"`
	Discharge float64 `json:"discharge"`
}

// Trend describes the direction of recent soil-moisture samples.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// SoilMoisture is the soil-moisture metric in percent.
type SoilMoisture struct {
	Current   int   `json:"current"`
	Threshold int   `json:"threshold"`
	Trend     Trend `json:"trend"`
}

// Reading drops the trend.
func (s SoilMoisture) Reading() Reading {
	return Reading{Current: s.Current, Threshold: s.Threshold}
}

// Metrics are the derived current-condition inputs of the four-factor scorer.
type Metrics struct {
	Level         Level        `json:"currentLevel"`
	Danger        Level        `json:"dangerLevel"`
	Rainfall      Reading      `json:"rainfall"`
	SoilMoisture  SoilMoisture `json:"soilMoisture"`
	BasinCapacity Reading      `json:"basinCapacity"`
	Degraded      bool         `json:"degraded"`
	Warnings      []string     `json:"warnings,omitempty"`
}

// Validate rejects metrics the scorer cannot interpret.
func (m Metrics) Validate() error {
	switch {
	case math.IsNaN(m.Level.Discharge) || m.Level.Discharge < 0:
		return fmt.Errorf("%w: level discharge must be >= 0", domain.ErrInvalidInput)
	case m.Rainfall.Threshold < 0 || m.SoilMoisture.Threshold < 0 || m.BasinCapacity.Threshold < 0:
		return fmt.Errorf("%w: thresholds must be >= 0", domain.ErrInvalidInput)
	}
	return nil
}

// DeriveMetrics turns flood history, an area profile, and an optional
// soil-moisture series into scoring metrics. Events may arrive in any order;
// the newest domain.MaxRecentEvents are used. A nil or failed soil series
// yields the fallback moisture and marks the metrics degraded.
func DeriveMetrics(events []domain.FloodEvent, profile domain.AreaProfile, soil *domain.SoilSeries) (Metrics, error) {
	if err := profile.Validate(); err != nil {
		return Metrics{}, err
	}
	recent := domain.MostRecent(events, domain.MaxRecentEvents)
	if err := checkHistory(recent); err != nil {
		return Metrics{}, err
	}

	level, err := DeriveCurrentLevel(recent, profile)
	if err != nil {
		return Metrics{}, err
	}
	danger, err := DeriveDangerLevel(recent, profile)
	if err != nil {
		return Metrics{}, err
	}
	rainfall, err := DeriveRainfall(recent, profile)
	if err != nil {
		return Metrics{}, err
	}
	capacity, err := DeriveBasinCapacity(recent, profile)
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		Level:         level,
		Danger:        danger,
		Rainfall:      rainfall,
		BasinCapacity: capacity,
	}

	var series domain.SoilSeries
	if soil == nil {
		series.Err = errors.New("no soil-moisture source")
	} else {
		series = *soil
	}
	moisture, warning := DeriveSoilMoisture(series)
	m.SoilMoisture = moisture
	if warning != "" {
		m.Degraded = true
		m.Warnings = append(m.Warnings, warning)
	}
	return m, nil
}

// DeriveCurrentLevel averages the discharge of the three newest events and
// adjusts it for drainage quality. events must be newest first.
func DeriveCurrentLevel(events []domain.FloodEvent, profile domain.AreaProfile) (Level, error) {
	if err := checkHistory(events); err != nil {
		return Level{}, err
	}
	factor, err := drainageFactor(profile.DrainageSystem)
	if err != nil {
		return Level{}, err
	}
	window := events[:min(currentLevelWindow, len(events))]
	discharge := meanLevel(window) * factor
	current, err := roundMetric("current level", discharge/levelScale)
	if err != nil {
		return Level{}, err
	}
	return Level{Current: current, Discharge: discharge}, nil
}

// DeriveDangerLevel scales the peak discharge by flood-proneness and
// urbanization.
func DeriveDangerLevel(events []domain.FloodEvent, profile domain.AreaProfile) (Level, error) {
	if err := checkHistory(events); err != nil {
		return Level{}, err
	}
	urban, err := urbanFactor(profile.UrbanDevelopment)
	if err != nil {
		return Level{}, err
	}
	peak := events[0].Level
	for _, e := range events[1:] {
		peak = math.Max(peak, e.Level)
	}
	prone := 1.1
	if profile.FloodProne {
		prone = 1.2
	}
	discharge := peak * prone * urban
	current, err := roundMetric("danger level", discharge/levelScale)
	if err != nil {
		return Level{}, err
	}
	return Level{Current: current, Discharge: discharge}, nil
}

// DeriveRainfall estimates effective rainfall from event discharge. Dense
// vegetation lowers the effective value; the threshold is 1.5x the raw mean.
func DeriveRainfall(events []domain.FloodEvent, profile domain.AreaProfile) (Reading, error) {
	if err := checkHistory(events); err != nil {
		return Reading{}, err
	}
	mean := meanLevel(events) / rainfallScale
	vegetation := 1 - profile.VegetationCover.Value/200
	current, err := roundMetric("rainfall", mean*vegetation)
	if err != nil {
		return Reading{}, err
	}
	threshold, err := roundMetric("rainfall threshold", mean*1.5)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Current: current, Threshold: threshold}, nil
}

// DeriveBasinCapacity estimates remaining basin capacity, scaled by distance
// from the river (km) and elevation (m). The threshold is fixed at 80.
func DeriveBasinCapacity(events []domain.FloodEvent, profile domain.AreaProfile) (Reading, error) {
	if err := checkHistory(events); err != nil {
		return Reading{}, err
	}
	var sum float64
	for _, e := range events {
		sum += 100 - e.Level/rainfallScale
	}
	base := sum / float64(len(events))
	distance := 1 - profile.DistanceFromRiver.Value/10
	elevation := 1 - profile.Elevation.Value/1000
	current, err := roundMetric("basin capacity", base*(1+distance+elevation)/3)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Current: current, Threshold: basinCapacityThreshold}, nil
}

// DeriveSoilMoisture converts a chronological series of saturation fractions
// into a percentage metric. When the series failed, is empty, or holds only
// fill values, it returns the fallback {75, 90, stable} and a non-empty
// warning describing why.
func DeriveSoilMoisture(series domain.SoilSeries) (SoilMoisture, string) {
	if series.Err != nil {
		return fallbackMoisture(), "soil moisture unavailable, using fallback: " + series.Err.Error()
	}

	values := make([]float64, 0, len(series.Samples))
	for _, s := range series.Samples {
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) || s.Value == nasaFillValue {
			continue
		}
		values = append(values, s.Value)
	}
	if len(values) == 0 {
		return fallbackMoisture(), "soil moisture series is empty, using fallback"
	}

	current, err := roundMetric("soil moisture", values[len(values)-1]*100)
	if err != nil {
		return fallbackMoisture(), "soil moisture series out of range, using fallback"
	}
	threshold, err := roundMetric("soil moisture threshold", slices.Max(values)*1.1*100)
	if err != nil {
		return fallbackMoisture(), "soil moisture series out of range, using fallback"
	}
	return SoilMoisture{Current: current, Threshold: threshold, Trend: trendOf(values)}, ""
}

func fallbackMoisture() SoilMoisture {
	return SoilMoisture{Current: fallbackMoistureCurrent, Threshold: fallbackMoistureThreshold, Trend: TrendStable}
}

// trendOf averages the pairwise deltas of the last three values.
func trendOf(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}
	recent := values[max(0, len(values)-3):]
	var sum float64
	for i := 1; i < len(recent); i++ {
		sum += recent[i] - recent[i-1]
	}
	avg := sum / float64(len(recent)-1)
	switch {
	case avg > trendDelta:
		return TrendIncreasing
	case avg < -trendDelta:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func checkHistory(events []domain.FloodEvent) error {
	if len(events) == 0 {
		return fmt.Errorf("%w: at least one historical flood event is required", domain.ErrInsufficientHistory)
	}
	for _, e := range events {
		if math.IsNaN(e.Level) || e.Level < 0 || e.Level > domain.MaxEventLevel {
			return fmt.Errorf("%w: event level must be within 0-%g, got %g", domain.ErrInvalidInput, domain.MaxEventLevel, e.Level)
		}
	}
	return nil
}

func meanLevel(events []domain.FloodEvent) float64 {
	var sum float64
	for _, e := range events {
		sum += e.Level
	}
	return sum / float64(len(events))
}

func drainageFactor(d domain.DrainageQuality) (float64, error) {
	switch d {
	case domain.DrainagePoor:
		return 1.1, nil
	case domain.DrainageModerate:
		return 1.0, nil
	case domain.DrainageGood:
		return 0.9, nil
	case domain.DrainageExcellent:
		return 0.8, nil
	}
	return 0, fmt.Errorf("%w: unknown drainage system %q", domain.ErrInvalidInput, d)
}

func urbanFactor(u domain.UrbanDevelopment) (float64, error) {
	switch u {
	case domain.UrbanLow:
		return 1.0, nil
	case domain.UrbanMedium:
		return 1.1, nil
	case domain.UrbanHigh:
		return 1.2, nil
	}
	return 0, fmt.Errorf("%w: unknown urban development %q", domain.ErrInvalidInput, u)
}

// roundHalfUp rounds .5 toward positive infinity. v must be within
// ±maxRoundable; use roundMetric for unbounded inputs.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// maxRoundable is the largest magnitude float64 holds exactly as an integer.
const maxRoundable = 1 << 53

// roundMetric rounds v, rejecting values that would not fit an int.
func roundMetric(name string, v float64) (int, error) {
	if math.IsNaN(v) || math.Abs(v) > maxRoundable {
		return 0, fmt.Errorf("%w: %s out of range: %g", domain.ErrInvalidInput, name, v)
	}
	return roundHalfUp(v), nil
}
