package risk

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// warningCutoff is the sub-score at which a factor adds its own warning.
const warningCutoff = 80

// EvacuationZone is one evacuation tier that applies to an area.
type EvacuationZone struct {
	Level       int      `json:"level"`
	Description string   `json:"description"`
	Areas       []string `json:"areas"`
}

// FactorDetails are the per-factor display lines.
type FactorDetails struct {
	LevelRisk    string `json:"levelRisk"`
	RainfallRisk string `json:"rainfallRisk"`
	MoistureRisk string `json:"moistureRisk"`
	CapacityRisk string `json:"capacityRisk"`
}

// Advisory is the human-readable part of a four-factor result.
type Advisory struct {
	Summary         string
	Details         FactorDetails
	Recommendations []string
	EvacuationZones []EvacuationZone
}

var tierAdvice = map[Severity][]string{
	SeveritySevere:   {"Immediate evacuation recommended", "Emergency services on high alert"},
	SeverityHigh:     {"Prepare for possible evacuation", "Monitor river levels closely"},
	SeverityModerate: {"Stay alert for changing conditions", "Review evacuation plans"},
	SeverityLow:      {"Monitor weather forecasts", "Maintain normal activities with caution"},
}

// GenerateAdvisory builds the summary, detail lines, recommendations and,
// for high and severe tiers, the evacuation zones.
func GenerateAdvisory(score int, tier Severity, f Factors, profile domain.AreaProfile) Advisory {
	adv := Advisory{
		Summary: fmt.Sprintf("Current flood risk is %s (%d/100)", strings.ToUpper(string(tier)), score),
		Details: FactorDetails{
			LevelRisk:    fmt.Sprintf("River level risk: %d/100", f.LevelRisk),
			RainfallRisk: fmt.Sprintf("Rainfall risk: %d/100", f.RainfallRisk),
			MoistureRisk: fmt.Sprintf("Soil moisture risk: %d/100", f.MoistureRisk),
			CapacityRisk: fmt.Sprintf("Basin capacity risk: %d/100", f.CapacityRisk),
		},
		Recommendations: Recommendations(tier, f),
	}
	if tier == SeverityHigh || tier == SeveritySevere {
		adv.EvacuationZones = EvacuationZones(profile)
	}
	return adv
}

// Recommendations lists the tier advice followed by one warning per factor
// at or above 80, in level, rainfall, moisture, capacity order.
func Recommendations(tier Severity, f Factors) []string {
	base, ok := tierAdvice[tier]
	if !ok {
		base = tierAdvice[SeverityLow]
	}
	recs := append([]string(nil), base...)
	if f.LevelRisk >= warningCutoff {
		recs = append(recs, "River levels approaching critical threshold")
	}
	if f.RainfallRisk >= warningCutoff {
		recs = append(recs, "Heavy rainfall expected - prepare for flash floods")
	}
	if f.MoistureRisk >= warningCutoff {
		recs = append(recs, "High soil moisture - increased flood risk")
	}
	if f.CapacityRisk >= warningCutoff {
		recs = append(recs, "Basin capacity critical - prepare for overflow")
	}
	return recs
}

// EvacuationZones returns every zone the profile qualifies for, checked in
// order 1, 2, 3. Zones are cumulative, so a riverside low-lying area gets
// all three. Distance is in km, elevation in meters.
func EvacuationZones(profile domain.AreaProfile) []EvacuationZone {
	distance := profile.DistanceFromRiver.Value
	elevation := profile.Elevation.Value

	zones := []EvacuationZone{}
	if distance <= 1 && elevation <= 10 {
		zones = append(zones, EvacuationZone{
			Level:       1,
			Description: "Immediate evacuation required",
			Areas:       []string{"Riverside settlements", "Low-lying areas"},
		})
	}
	if distance <= 3 && elevation <= 20 {
		zones = append(zones, EvacuationZone{
			Level:       2,
			Description: "Prepare for evacuation",
			Areas:       []string{"Suburban areas", "Agricultural land"},
		})
	}
	if distance <= 5 {
		zones = append(zones, EvacuationZone{
			Level:       3,
			Description: "Monitor situation",
			Areas:       []string{"Urban areas", "Higher ground"},
		})
	}
	return zones
}
