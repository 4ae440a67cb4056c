package risk

import (
	"slices"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Strategy names.
const (
	StrategyFourFactor = "four-factor"
	StrategyTwoFactor  = "two-factor"
)

// Input carries everything either strategy may read. The four-factor
// strategy uses Events, Profile and Soil; the two-factor strategy uses
// Rainfall24h and RiverLevel.
type Input struct {
	Events      []domain.FloodEvent
	Profile     domain.AreaProfile
	Soil        *domain.SoilSeries
	Rainfall24h float64
	RiverLevel  *float64
}

// Outcome is a tier plus the strategy-specific result. Exactly one of
// FourFactor and TwoFactor is set.
type Outcome struct {
	Strategy   string           `json:"strategy"`
	Tier       string           `json:"tier"`
	Metrics    *Metrics         `json:"metrics,omitempty"`
	FourFactor *RiskResult      `json:"fourFactor,omitempty"`
	TwoFactor  *TwoFactorResult `json:"twoFactor,omitempty"`
}

// Strategy produces a tier from inputs. The tier vocabulary belongs to the
// strategy.
type Strategy interface {
	Name() string
	Assess(in Input) (Outcome, error)
}

type fourFactorStrategy struct {
	scorer *FourFactorScorer
}

// NewFourFactorStrategy derives metrics from history and scores them.
func NewFourFactorStrategy(t Thresholds) Strategy {
	return fourFactorStrategy{scorer: NewFourFactorScorer(t)}
}

func (fourFactorStrategy) Name() string { return StrategyFourFactor }

func (s fourFactorStrategy) Assess(in Input) (Outcome, error) {
	metrics, err := DeriveMetrics(in.Events, in.Profile, in.Soil)
	if err != nil {
		return Outcome{}, err
	}
	result, err := s.scorer.Compute(metrics, in.Profile)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Strategy:   StrategyFourFactor,
		Tier:       string(result.Tier),
		Metrics:    &metrics,
		FourFactor: &result,
	}, nil
}

type twoFactorStrategy struct {
	scorer *TwoFactorScorer
}

// NewTwoFactorStrategy buckets rainfall and river level.
func NewTwoFactorStrategy(t Thresholds, clock clockwork.Clock) Strategy {
	return twoFactorStrategy{scorer: NewTwoFactorScorer(t, clock)}
}

func (twoFactorStrategy) Name() string { return StrategyTwoFactor }

func (s twoFactorStrategy) Assess(in Input) (Outcome, error) {
	result, err := s.scorer.Assess(in.Rainfall24h, in.RiverLevel)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Strategy:  StrategyTwoFactor,
		Tier:      string(result.Tier),
		TwoFactor: &result,
	}, nil
}

// Registry looks strategies up by name.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry registers both built-in strategies.
func NewRegistry(t Thresholds, clock clockwork.Clock) *Registry {
	return NewRegistryOf(NewFourFactorStrategy(t), NewTwoFactorStrategy(t, clock))
}

// NewRegistryOf registers the given strategies. Later entries replace
// earlier ones with the same name.
func NewRegistryOf(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Name()] = s
	}
	return r
}

// Get returns the named strategy.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Names lists registered strategies in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
