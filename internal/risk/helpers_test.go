package risk_test

import (
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

func patnaProfile() domain.AreaProfile {
	return domain.AreaProfile{
		State:             "Bihar",
		City:              "Patna",
		Area:              "Gandhi Maidan",
		Coordinates:       domain.Coordinates{Lat: 25.6093, Lon: 85.1376},
		Elevation:         domain.Measure{Value: 53, Unit: domain.UnitMeters},
		DistanceFromRiver: domain.Measure{Value: 1.2, Unit: domain.UnitKilometers},
		DrainageSystem:    domain.DrainageModerate,
		UrbanDevelopment:  domain.UrbanHigh,
		PopulationDensity: domain.Measure{Value: 15000, Unit: domain.UnitPerSqKm},
		SoilType:          "Alluvial",
		VegetationCover:   domain.Measure{Value: 15, Unit: domain.UnitPercent},
		FloodProne:        true,
		RiverBasin:        "Ganga",
	}
}

func patnaEvents() []domain.FloodEvent {
	return []domain.FloodEvent{
		event(2018, 9, 75000),
		event(2020, 8, 82000),
		event(2019, 7, 78000),
	}
}

func event(year, month int, level float64) domain.FloodEvent {
	return domain.FloodEvent{
		State: "Bihar", City: "Patna", Area: "Gandhi Maidan",
		Year: year, Month: month, Level: level, Impact: "Severe",
	}
}
