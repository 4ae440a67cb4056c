package risk

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Bands are ascending cutoffs for the two-factor classification.
type Bands struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// Validate requires strictly ascending, non-negative cutoffs.
func (b Bands) Validate() error {
	if b.Low < 0 || b.Low >= b.Medium || b.Medium >= b.High {
		return fmt.Errorf("%w: bands must satisfy 0 <= low < medium < high, got %g/%g/%g",
			domain.ErrInvalidInput, b.Low, b.Medium, b.High)
	}
	return nil
}

// BasinThresholds are discharge cutoffs in m³/s for one river basin.
type BasinThresholds struct {
	Low      float64 `json:"low"`
	Moderate float64 `json:"moderate"`
	High     float64 `json:"high"`
	Severe   float64 `json:"severe"`
}

// Validate requires strictly ascending, non-negative cutoffs.
func (b BasinThresholds) Validate() error {
	if b.Low < 0 || b.Low >= b.Moderate || b.Moderate >= b.High || b.High >= b.Severe {
		return fmt.Errorf("%w: basin thresholds must be ascending, got %g/%g/%g/%g",
			domain.ErrInvalidInput, b.Low, b.Moderate, b.High, b.Severe)
	}
	return nil
}

// Thresholds is the explicit configuration handed to the scorers.
type Thresholds struct {
	Rainfall24h  Bands                      `json:"rainfall24h"`
	RiverLevel   Bands                      `json:"riverLevel"`
	RiverBasins  map[string]BasinThresholds `json:"riverBasins"`
	DefaultBasin string                     `json:"defaultBasin"`
}

// DefaultBasin is used when a profile names a basin that is not configured.
const DefaultBasin = "Ganga"

// DefaultThresholds returns the stock cutoffs: rainfall in mm over 24 hours,
// river gauge level in meters, basin discharge in m³/s.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Rainfall24h: Bands{Low: 50, Medium: 100, High: 150},
		RiverLevel:  Bands{Low: 2.0, Medium: 3.0, High: 4.0},
		RiverBasins: map[string]BasinThresholds{
			"Ganga":       {Low: 10000, Moderate: 12000, High: 14000, Severe: 15000},
			"Brahmaputra": {Low: 12000, Moderate: 14000, High: 16000, Severe: 20000},
			"Yamuna":      {Low: 2000, Moderate: 3000, High: 4000, Severe: 5000},
			"Godavari":    {Low: 3000, Moderate: 4000, High: 5000, Severe: 6000},
		},
		DefaultBasin: DefaultBasin,
	}
}

// Validate checks every band and that the default basin is configured.
func (t Thresholds) Validate() error {
	if err := t.Rainfall24h.Validate(); err != nil {
		return fmt.Errorf("rainfall24h: %w", err)
	}
	if err := t.RiverLevel.Validate(); err != nil {
		return fmt.Errorf("riverLevel: %w", err)
	}
	for name, b := range t.RiverBasins {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("basin %s: %w", name, err)
		}
	}
	if _, _, ok := t.lookupBasin(t.DefaultBasin); !ok {
		return fmt.Errorf("%w: default basin %q is not configured", domain.ErrInvalidInput, t.DefaultBasin)
	}
	return nil
}

// Basin returns the configured basin key and thresholds for name, matched
// case-insensitively, falling back to the default basin. ok is false when
// the fallback was used.
func (t Thresholds) Basin(name string) (key string, b BasinThresholds, ok bool) {
	if key, b, ok := t.lookupBasin(name); ok {
		return key, b, true
	}
	key, b, _ = t.lookupBasin(t.DefaultBasin)
	return key, b, false
}

func (t Thresholds) lookupBasin(name string) (string, BasinThresholds, bool) {
	name = strings.TrimSpace(name)
	if b, ok := t.RiverBasins[name]; ok {
		return name, b, true
	}
	for k, b := range t.RiverBasins {
		if strings.EqualFold(k, name) {
			return k, b, true
		}
	}
	return "", BasinThresholds{}, false
}
