package domain

import (
	"fmt"
	"math"
	"strings"
)

// DrainageQuality grades an area's storm-water drainage.
type DrainageQuality string

const (
	DrainagePoor      DrainageQuality = "Poor"
	DrainageModerate  DrainageQuality = "Moderate"
	DrainageGood      DrainageQuality = "Good"
	DrainageExcellent DrainageQuality = "Excellent"
)

// Valid reports whether d is one of the known grades.
func (d DrainageQuality) Valid() bool {
	switch d {
	case DrainagePoor, DrainageModerate, DrainageGood, DrainageExcellent:
		return true
	}
	return false
}

// UrbanDevelopment grades how built-up an area is.
type UrbanDevelopment string

const (
	UrbanLow    UrbanDevelopment = "Low"
	UrbanMedium UrbanDevelopment = "Medium"
	UrbanHigh   UrbanDevelopment = "High"
)

// Valid reports whether u is one of the known grades.
func (u UrbanDevelopment) Valid() bool {
	switch u {
	case UrbanLow, UrbanMedium, UrbanHigh:
		return true
	}
	return false
}

// Measure is a numeric value with its unit, e.g. {53, "meters"}.
type Measure struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// String renders the measure as "<value> <unit>".
func (m Measure) String() string {
	if m.Unit == "" {
		return fmt.Sprintf("%g", m.Value)
	}
	return fmt.Sprintf("%g %s", m.Value, m.Unit)
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Default units applied by Normalize when a measure has none.
const (
	UnitMeters     = "meters"
	UnitKilometers = "kilometers"
	UnitPercent    = "percent"
	UnitPerSqKm    = "per square km"
)

// AreaKey identifies an area. Area may be empty when a caller only knows the
// state and city.
type AreaKey struct {
	State string `json:"state"`
	City  string `json:"city"`
	Area  string `json:"area,omitempty"`
}

// NormalizeKey lower-cases each component and collapses internal whitespace.
func NormalizeKey(state, city, area string) AreaKey {
	return AreaKey{
		State: normalizeName(state),
		City:  normalizeName(city),
		Area:  normalizeName(area),
	}
}

// Normalized returns k with every component normalized.
func (k AreaKey) Normalized() AreaKey {
	return NormalizeKey(k.State, k.City, k.Area)
}

func (k AreaKey) String() string {
	if k.Area == "" {
		return k.State + "/" + k.City
	}
	return k.State + "/" + k.City + "/" + k.Area
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// AreaProfile holds the static attributes of a geographic area.
type AreaProfile struct {
	State             string           `json:"state"`
	City              string           `json:"city"`
	Area              string           `json:"area"`
	Coordinates       Coordinates      `json:"coordinates"`
	Elevation         Measure          `json:"elevation"`
	DistanceFromRiver Measure          `json:"distanceFromRiver"`
	DrainageSystem    DrainageQuality  `json:"drainageSystem"`
	UrbanDevelopment  UrbanDevelopment `json:"urbanDevelopment"`
	PopulationDensity Measure          `json:"populationDensity"`
	SoilType          string           `json:"soilType"`
	VegetationCover   Measure          `json:"vegetationCover"`
	FloodProne        bool             `json:"floodProne"`
	RiverBasin        string           `json:"riverBasin"`
}

// Key returns the normalized identity of the profile.
func (p AreaProfile) Key() AreaKey {
	return NormalizeKey(p.State, p.City, p.Area)
}

// Normalize returns a copy with a normalized key and default units filled in.
func (p AreaProfile) Normalize() AreaProfile {
	k := p.Key()
	p.State, p.City, p.Area = k.State, k.City, k.Area
	p.Elevation.Unit = orDefault(p.Elevation.Unit, UnitMeters)
	p.DistanceFromRiver.Unit = orDefault(p.DistanceFromRiver.Unit, UnitKilometers)
	p.VegetationCover.Unit = orDefault(p.VegetationCover.Unit, UnitPercent)
	p.PopulationDensity.Unit = orDefault(p.PopulationDensity.Unit, UnitPerSqKm)
	p.RiverBasin = strings.TrimSpace(p.RiverBasin)
	return p
}

// Validate rejects profiles that the scorer cannot interpret.
func (p AreaProfile) Validate() error {
	k := p.Key()
	switch {
	case k.State == "" || k.City == "" || k.Area == "":
		return fmt.Errorf("%w: state, city and area are required", ErrInvalidInput)
	case !finiteNonNegative(p.Elevation.Value):
		return fmt.Errorf("%w: elevation must be >= 0, got %g", ErrInvalidInput, p.Elevation.Value)
	case !finiteNonNegative(p.DistanceFromRiver.Value):
		return fmt.Errorf("%w: distance from river must be >= 0, got %g", ErrInvalidInput, p.DistanceFromRiver.Value)
	case !finiteNonNegative(p.PopulationDensity.Value):
		return fmt.Errorf("%w: population density must be >= 0, got %g", ErrInvalidInput, p.PopulationDensity.Value)
	case !finiteNonNegative(p.VegetationCover.Value) || p.VegetationCover.Value > 100:
		return fmt.Errorf("%w: vegetation cover must be within 0-100, got %g", ErrInvalidInput, p.VegetationCover.Value)
	case !p.DrainageSystem.Valid():
		return fmt.Errorf("%w: unknown drainage system %q", ErrInvalidInput, p.DrainageSystem)
	case !p.UrbanDevelopment.Valid():
		return fmt.Errorf("%w: unknown urban development %q", ErrInvalidInput, p.UrbanDevelopment)
	case p.Coordinates.Lat < -90 || p.Coordinates.Lat > 90 || p.Coordinates.Lon < -180 || p.Coordinates.Lon > 180:
		return fmt.Errorf("%w: coordinates out of range (%g, %g)", ErrInvalidInput, p.Coordinates.Lat, p.Coordinates.Lon)
	}
	return nil
}

// Characteristic is a display row for an area attribute.
type Characteristic struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Characteristics lists the profile's attributes in display order.
func (p AreaProfile) Characteristics() []Characteristic {
	return []Characteristic{
		{Name: "Elevation", Value: p.Elevation.String()},
		{Name: "Distance from River", Value: p.DistanceFromRiver.String()},
		{Name: "Drainage System", Value: string(p.DrainageSystem)},
		{Name: "Urban Development", Value: string(p.UrbanDevelopment)},
		{Name: "Population Density", Value: p.PopulationDensity.String()},
		{Name: "Soil Type", Value: p.SoilType},
		{Name: "Vegetation Cover", Value: p.VegetationCover.String()},
	}
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
