package repository

// Schema definitions, compatible with both SQLite and PostgreSQL. Key columns
// hold normalized (lower-case) names; *_name columns keep the display form.

const schemaAreaProfiles = `
CREATE TABLE IF NOT EXISTS area_profiles (
    state_key TEXT NOT NULL,
    city_key TEXT NOT NULL,
    area_key TEXT NOT NULL,
    state_name TEXT NOT NULL,
    city_name TEXT NOT NULL,
    area_name TEXT NOT NULL,
    lat DOUBLE PRECISION NOT NULL,
    lon DOUBLE PRECISION NOT NULL,
    elevation DOUBLE PRECISION NOT NULL,
    elevation_unit TEXT NOT NULL,
    distance_from_river DOUBLE PRECISION NOT NULL,
    distance_unit TEXT NOT NULL,
    drainage_system TEXT NOT NULL,
    urban_development TEXT NOT NULL,
    population_density DOUBLE PRECISION NOT NULL,
    population_unit TEXT NOT NULL,
    soil_type TEXT NOT NULL,
    vegetation_cover DOUBLE PRECISION NOT NULL,
    vegetation_unit TEXT NOT NULL,
    flood_prone INTEGER NOT NULL DEFAULT 0,
    river_basin TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (state_key, city_key, area_key)
);
`

const schemaFloodEvents = `
CREATE TABLE IF NOT EXISTS flood_events (
    id TEXT PRIMARY KEY,
    state_key TEXT NOT NULL,
    city_key TEXT NOT NULL,
    area_key TEXT NOT NULL,
    year INTEGER NOT NULL,
    month INTEGER NOT NULL,
    level DOUBLE PRECISION NOT NULL,
    impact TEXT NOT NULL,
    affected_areas TEXT NOT NULL,
    casualties INTEGER NOT NULL DEFAULT 0,
    damage DOUBLE PRECISION NOT NULL DEFAULT 0,
    evacuation_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flood_events_area ON flood_events(state_key, city_key, area_key, year, month);
CREATE INDEX IF NOT EXISTS idx_flood_events_city ON flood_events(state_key, city_key, year, month);
`

// AllSchemas returns every schema in creation order.
func AllSchemas() []string {
	return []string{schemaAreaProfiles, schemaFloodEvents}
}
