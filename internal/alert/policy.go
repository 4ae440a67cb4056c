// Package alert decides which monitoring results raise a flood alert.
package alert

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// DefaultRule raises an alert for the most severe two-factor tier.
const DefaultRule = `tier == "High"`

// Input is the data a rule can reference. Variables exposed to CEL:
//
//	location        string
//	tier            string  ("Minimal", "Low", "Medium", "High")
//	tier_rank       int     (0-3)
//	rainfall_24h    double  (mm)
//	has_river_level bool
//	river_level     double  (m, 0 when absent)
type Input struct {
	Location    string
	Tier        string
	TierRank    int
	Rainfall24h float64
	RiverLevel  *float64
}

// Policy is a compiled CEL rule. It is safe for concurrent use.
type Policy struct {
	expr    string
	program cel.Program
}

// NewPolicy compiles rule, which must evaluate to a bool.
func NewPolicy(rule string) (*Policy, error) {
	if rule == "" {
		rule = DefaultRule
	}

	env, err := cel.NewEnv(
		cel.Variable("location", cel.StringType),
		cel.Variable("tier", cel.StringType),
		cel.Variable("tier_rank", cel.IntType),
		cel.Variable("rainfall_24h", cel.DoubleType),
		cel.Variable("has_river_level", cel.BoolType),
		cel.Variable("river_level", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile alert rule: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("alert rule must return bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create alert program: %w", err)
	}
	return &Policy{expr: rule, program: prg}, nil
}

// Rule returns the source expression.
func (p *Policy) Rule() string { return p.expr }

// ShouldAlert evaluates the rule against in.
func (p *Policy) ShouldAlert(in Input) (bool, error) {
	river := 0.0
	if in.RiverLevel != nil {
		river = *in.RiverLevel
	}
	out, _, err := p.program.Eval(map[string]any{
		"location":        in.Location,
		"tier":            in.Tier,
		"tier_rank":       int64(in.TierRank),
		"rainfall_24h":    in.Rainfall24h,
		"has_river_level": in.RiverLevel != nil,
		"river_level":     river,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate alert rule: %w", err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("alert rule returned %v, want bool", out.Type())
	}
	return bool(b), nil
}
