// Package risk is the flood-risk scoring engine.
//
// Everything here is a pure, synchronous function of its inputs: no I/O, no
// logging, no shared mutable state. Callers fetch area profiles, flood history,
// and external series first, then hand the values to the engine.
//
// Two scoring strategies coexist and are deliberately kept apart because their
// tier vocabularies differ:
//
//	four-factor  level 40% + rainfall 20% + soil moisture 20% + basin capacity 20%
//	             → score 0–100 → low | moderate | high | severe
//	two-factor   24h rainfall and optional river gauge, each bucketed
//	             → Minimal | Low | Medium | High (overall = the worse of the two)
//
// Both satisfy [Strategy] so callers can select one by name.
//
// # Units
//
// Historical event levels are river discharge in m³/s. Level risk compares the
// drainage-adjusted discharge with the basin thresholds, which are also m³/s.
// The scaled "current level" (discharge / 10,000, rounded) is reported for
// display only and is never compared with discharge thresholds.
package risk
