// Package repository persists area profiles and the flood-event log.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Config selects and configures the SQL backend.
type Config struct {
	Driver      string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresDSN string
}

// SQLRepository stores profiles and events using database/sql. It works with
// both the SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
	clock  clockwork.Clock
}

// Option customizes a repository.
type Option func(*SQLRepository)

// WithClock sets the clock used for created/updated timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(r *SQLRepository) { r.clock = c }
}

// New opens the configured database and applies the schema.
func New(cfg Config, opts ...Option) (*SQLRepository, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := &SQLRepository{db: db, driver: cfg.Driver, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(repo)
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		for _, stmt := range strings.Split(schema, ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := r.db.Exec(stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveAreaProfile inserts or replaces the profile for its (state, city, area).
func (r *SQLRepository) SaveAreaProfile(ctx context.Context, p domain.AreaProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	display := p
	p = p.Normalize()

	query := `
		INSERT INTO area_profiles (
			state_key, city_key, area_key, state_name, city_name, area_name,
			lat, lon, elevation, elevation_unit, distance_from_river, distance_unit,
			drainage_system, urban_development, population_density, population_unit,
			soil_type, vegetation_cover, vegetation_unit, flood_prone, river_basin, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(state_key, city_key, area_key) DO UPDATE SET
			state_name = excluded.state_name,
			city_name = excluded.city_name,
			area_name = excluded.area_name,
			lat = excluded.lat,
			lon = excluded.lon,
			elevation = excluded.elevation,
			elevation_unit = excluded.elevation_unit,
			distance_from_river = excluded.distance_from_river,
			distance_unit = excluded.distance_unit,
			drainage_system = excluded.drainage_system,
			urban_development = excluded.urban_development,
			population_density = excluded.population_density,
			population_unit = excluded.population_unit,
			soil_type = excluded.soil_type,
			vegetation_cover = excluded.vegetation_cover,
			vegetation_unit = excluded.vegetation_unit,
			flood_prone = excluded.flood_prone,
			river_basin = excluded.river_basin,
			updated_at = excluded.updated_at
	`

	floodProne := 0
	if p.FloodProne {
		floodProne = 1
	}

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		p.State, p.City, p.Area,
		strings.TrimSpace(display.State), strings.TrimSpace(display.City), strings.TrimSpace(display.Area),
		p.Coordinates.Lat, p.Coordinates.Lon,
		p.Elevation.Value, p.Elevation.Unit,
		p.DistanceFromRiver.Value, p.DistanceFromRiver.Unit,
		string(p.DrainageSystem), string(p.UrbanDevelopment),
		p.PopulationDensity.Value, p.PopulationDensity.Unit,
		p.SoilType, p.VegetationCover.Value, p.VegetationCover.Unit,
		floodProne, p.RiverBasin, r.clock.Now().UTC(),
	)
	return err
}

// FindAreaProfile returns the profile for key. When key.Area is empty the
// first profile of the (state, city) pair, ordered by area, is returned.
func (r *SQLRepository) FindAreaProfile(ctx context.Context, key domain.AreaKey) (domain.AreaProfile, error) {
	key = key.Normalized()
	if key.State == "" || key.City == "" {
		return domain.AreaProfile{}, fmt.Errorf("%w: state and city are required", domain.ErrInvalidInput)
	}

	query := `
		SELECT state_name, city_name, area_name, lat, lon,
			   elevation, elevation_unit, distance_from_river, distance_unit,
			   drainage_system, urban_development, population_density, population_unit,
			   soil_type, vegetation_cover, vegetation_unit, flood_prone, river_basin
		FROM area_profiles
		WHERE state_key = ? AND city_key = ?`
	args := []any{key.State, key.City}
	if key.Area != "" {
		query += " AND area_key = ?"
		args = append(args, key.Area)
	}
	query += " ORDER BY area_key LIMIT 1"

	var (
		p          domain.AreaProfile
		drainage   string
		urban      string
		floodProne int
	)
	err := r.db.QueryRowContext(ctx, r.rebind(query), args...).Scan(
		&p.State, &p.City, &p.Area, &p.Coordinates.Lat, &p.Coordinates.Lon,
		&p.Elevation.Value, &p.Elevation.Unit,
		&p.DistanceFromRiver.Value, &p.DistanceFromRiver.Unit,
		&drainage, &urban,
		&p.PopulationDensity.Value, &p.PopulationDensity.Unit,
		&p.SoilType, &p.VegetationCover.Value, &p.VegetationCover.Unit,
		&floodProne, &p.RiverBasin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AreaProfile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, key)
	}
	if err != nil {
		return domain.AreaProfile{}, err
	}
	p.DrainageSystem = domain.DrainageQuality(drainage)
	p.UrbanDevelopment = domain.UrbanDevelopment(urban)
	p.FloodProne = floodProne != 0
	return p, nil
}

// AppendFloodEvent adds an event to the log and returns its generated ID.
func (r *SQLRepository) AppendFloodEvent(ctx context.Context, e domain.FloodEvent) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	key := e.Key()

	affected, err := json.Marshal(e.AffectedAreas)
	if err != nil {
		return "", fmt.Errorf("encode affected areas: %w", err)
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.clock.Now().UTC()
	}

	query := `
		INSERT INTO flood_events (
			id, state_key, city_key, area_key, year, month, level, impact,
			affected_areas, casualties, damage, evacuation_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	id := uuid.New().String()
	_, err = r.db.ExecContext(ctx, r.rebind(query),
		id, key.State, key.City, key.Area,
		e.Year, e.Month, e.Level, e.Impact,
		string(affected), e.Casualties, e.Damage, e.EvacuationCount, createdAt,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecentEvents returns up to limit events for key, newest first by (year,
// month). Events recorded in the same month keep insertion order. When
// key.Area is empty, events of every area in the city are considered.
func (r *SQLRepository) RecentEvents(ctx context.Context, key domain.AreaKey, limit int) ([]domain.FloodEvent, error) {
	key = key.Normalized()
	if key.State == "" || key.City == "" {
		return nil, fmt.Errorf("%w: state and city are required", domain.ErrInvalidInput)
	}
	if limit <= 0 || limit > domain.MaxRecentEvents {
		limit = domain.MaxRecentEvents
	}

	query := `
		SELECT e.year, e.month, e.level, e.impact, e.affected_areas,
			   e.casualties, e.damage, e.evacuation_count, e.created_at,
			   COALESCE(p.state_name, e.state_key), COALESCE(p.city_name, e.city_key), COALESCE(p.area_name, e.area_key)
		FROM flood_events e
		LEFT JOIN area_profiles p
			ON p.state_key = e.state_key AND p.city_key = e.city_key AND p.area_key = e.area_key
		WHERE e.state_key = ? AND e.city_key = ?`
	args := []any{key.State, key.City}
	if key.Area != "" {
		query += " AND e.area_key = ?"
		args = append(args, key.Area)
	}
	query += " ORDER BY e.year DESC, e.month DESC, e.created_at ASC LIMIT " + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.FloodEvent
	for rows.Next() {
		var (
			e        domain.FloodEvent
			affected string
		)
		if err := rows.Scan(
			&e.Year, &e.Month, &e.Level, &e.Impact, &affected,
			&e.Casualties, &e.Damage, &e.EvacuationCount, &e.CreatedAt,
			&e.State, &e.City, &e.Area,
		); err != nil {
			return nil, err
		}
		if affected != "" {
			if err := json.Unmarshal([]byte(affected), &e.AffectedAreas); err != nil {
				return nil, fmt.Errorf("decode affected areas: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CheckReadiness pings the database.
func (r *SQLRepository) CheckReadiness(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
