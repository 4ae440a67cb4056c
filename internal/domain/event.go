package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// MaxRecentEvents caps how many historical events feed a scoring run.
const MaxRecentEvents = 5

// MaxEventLevel bounds recorded discharge in m³/s, well above any gauged river.
const MaxEventLevel = 1e9

// FloodEvent is one recorded flood in an area's history. Level is the peak
// discharge in m³/s.
type FloodEvent struct {
	State           string    `json:"state"`
	City            string    `json:"city"`
	Area            string    `json:"area"`
	Year            int       `json:"year"`
	Month           int       `json:"month"`
	Level           float64   `json:"level"`
	Impact          string    `json:"impact"`
	AffectedAreas   []string  `json:"affectedAreas"`
	Casualties      int       `json:"casualties"`
	Damage          float64   `json:"damage"`
	EvacuationCount int       `json:"evacuationCount"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
}

// Key returns the normalized identity of the area the event belongs to.
func (e FloodEvent) Key() AreaKey {
	return NormalizeKey(e.State, e.City, e.Area)
}

// Validate rejects events with missing identity or out-of-range values.
func (e FloodEvent) Validate() error {
	k := e.Key()
	switch {
	case k.State == "" || k.City == "" || k.Area == "":
		return fmt.Errorf("%w: state, city and area are required", ErrInvalidInput)
	case e.Month < 1 || e.Month > 12:
		return fmt.Errorf("%w: month must be within 1-12, got %d", ErrInvalidInput, e.Month)
	case e.Year <= 0:
		return fmt.Errorf("%w: year must be positive, got %d", ErrInvalidInput, e.Year)
	case !finiteNonNegative(e.Level) || e.Level > MaxEventLevel:
		return fmt.Errorf("%w: level must be within 0-%g, got %g", ErrInvalidInput, MaxEventLevel, e.Level)
	case e.Impact == "":
		return fmt.Errorf("%w: impact is required", ErrInvalidInput)
	case e.Casualties < 0:
		return fmt.Errorf("%w: casualties must be >= 0, got %d", ErrInvalidInput, e.Casualties)
	case math.IsNaN(e.Damage) || e.Damage < 0:
		return fmt.Errorf("%w: damage must be >= 0, got %g", ErrInvalidInput, e.Damage)
	case e.EvacuationCount < 0:
		return fmt.Errorf("%w: evacuation count must be >= 0, got %d", ErrInvalidInput, e.EvacuationCount)
	}
	return nil
}

// SortNewestFirst orders events by (year desc, month desc) in place. The sort
// is stable so events in the same month keep their recorded order.
func SortNewestFirst(events []FloodEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Year != events[j].Year {
			return events[i].Year > events[j].Year
		}
		return events[i].Month > events[j].Month
	})
}

// MostRecent returns up to limit events, newest first, without mutating the
// input. A limit outside 1..MaxRecentEvents is clamped to MaxRecentEvents.
func MostRecent(events []FloodEvent, limit int) []FloodEvent {
	if limit <= 0 || limit > MaxRecentEvents {
		limit = MaxRecentEvents
	}
	out := make([]FloodEvent, len(events))
	copy(out, events)
	SortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
