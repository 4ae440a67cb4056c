package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/repository"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *repository.SQLRepository {
	t.Helper()
	repo, err := repository.New(repository.Config{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "floodrisk.db"),
	}, repository.WithClock(clockwork.NewFakeClockAt(baseTime)))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func patna(area string) domain.AreaProfile {
	return domain.AreaProfile{
		State:             "Bihar",
		City:              "Patna",
		Area:              area,
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

func floodEvent(area string, year, month int, level float64, created time.Time) domain.FloodEvent {
	return domain.FloodEvent{
		State: "Bihar", City: "Patna", Area: area,
		Year: year, Month: month, Level: level,
		Impact:        "Severe",
		AffectedAreas: []string{"Gandhi Maidan", "Kankarbagh"},
		Casualties:    12,
		Damage:        5000000,
		CreatedAt:     created,
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := repository.New(repository.Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestNew_PostgresRequiresDSN(t *testing.T) {
	_, err := repository.New(repository.Config{Driver: "postgres"})
	require.Error(t, err)
}

func TestAreaProfile_SaveAndFind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveAreaProfile(ctx, patna("Gandhi Maidan")))

	got, err := repo.FindAreaProfile(ctx, domain.AreaKey{State: "BIHAR", City: " patna ", Area: "gandhi   maidan"})
	require.NoError(t, err)
	assert.Equal(t, "Bihar", got.State)
	assert.Equal(t, "Gandhi Maidan", got.Area)
	assert.Equal(t, domain.DrainageModerate, got.DrainageSystem)
	assert.Equal(t, domain.UrbanHigh, got.UrbanDevelopment)
	assert.True(t, got.FloodProne)
	assert.InDelta(t, 85.1376, got.Coordinates.Lon, 1e-9)
	assert.Equal(t, domain.Measure{Value: 53, Unit: "meters"}, got.Elevation)
}

func TestAreaProfile_UpsertKeepsOneRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := patna("Gandhi Maidan")
	require.NoError(t, repo.SaveAreaProfile(ctx, p))
	p.Area = "GANDHI MAIDAN"
	p.RiverBasin = "Yamuna"
	require.NoError(t, repo.SaveAreaProfile(ctx, p))

	got, err := repo.FindAreaProfile(ctx, p.Key())
	require.NoError(t, err)
	assert.Equal(t, "Yamuna", got.RiverBasin)
	assert.Equal(t, "GANDHI MAIDAN", got.Area)
}

func TestAreaProfile_CityLookupUsesFirstArea(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveAreaProfile(ctx, patna("Kankarbagh")))
	require.NoError(t, repo.SaveAreaProfile(ctx, patna("Boring Road")))

	got, err := repo.FindAreaProfile(ctx, domain.NormalizeKey("Bihar", "Patna", ""))
	require.NoError(t, err)
	assert.Equal(t, "Boring Road", got.Area)
}

func TestAreaProfile_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindAreaProfile(context.Background(), domain.NormalizeKey("Assam", "Guwahati", "Dispur"))
	require.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestAreaProfile_RejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)

	p := patna("Gandhi Maidan")
	p.VegetationCover.Value = 140
	require.ErrorIs(t, repo.SaveAreaProfile(context.Background(), p), domain.ErrInvalidInput)
}

func TestRecentEvents_NewestFirstAndLimited(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveAreaProfile(ctx, patna("Gandhi Maidan")))

	levels := map[int]float64{2016: 60000, 2017: 65000, 2018: 75000, 2019: 78000, 2020: 82000, 2021: 70000}
	i := 0
	for year, level := range levels {
		_, err := repo.AppendFloodEvent(ctx, floodEvent("Gandhi Maidan", year, 8, level, baseTime.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		i++
	}

	events, err := repo.RecentEvents(ctx, domain.NormalizeKey("bihar", "patna", "gandhi maidan"), 10)
	require.NoError(t, err)
	require.Len(t, events, domain.MaxRecentEvents)

	years := make([]int, 0, len(events))
	for _, e := range events {
		years = append(years, e.Year)
	}
	assert.Equal(t, []int{2021, 2020, 2019, 2018, 2017}, years)
	assert.Equal(t, "Gandhi Maidan", events[0].Area)
	assert.Equal(t, []string{"Gandhi Maidan", "Kankarbagh"}, events[0].AffectedAreas)
}

func TestRecentEvents_SameMonthKeepsInsertionOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AppendFloodEvent(ctx, floodEvent("Gandhi Maidan", 2020, 8, 1000, baseTime))
	require.NoError(t, err)
	_, err = repo.AppendFloodEvent(ctx, floodEvent("Gandhi Maidan", 2020, 8, 2000, baseTime.Add(time.Hour)))
	require.NoError(t, err)

	events, err := repo.RecentEvents(ctx, domain.NormalizeKey("Bihar", "Patna", "Gandhi Maidan"), 5)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.InDelta(t, 1000, events[0].Level, 1e-9)
	assert.InDelta(t, 2000, events[1].Level, 1e-9)
}

func TestRecentEvents_CityWide(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AppendFloodEvent(ctx, floodEvent("Gandhi Maidan", 2019, 7, 78000, baseTime))
	require.NoError(t, err)
	_, err = repo.AppendFloodEvent(ctx, floodEvent("Kankarbagh", 2020, 8, 82000, baseTime))
	require.NoError(t, err)

	events, err := repo.RecentEvents(ctx, domain.NormalizeKey("Bihar", "Patna", ""), 5)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 2020, events[0].Year)

	events, err = repo.RecentEvents(ctx, domain.NormalizeKey("Bihar", "Patna", "Gandhi Maidan"), 5)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestAppendFloodEvent_RejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)

	e := floodEvent("Gandhi Maidan", 2020, 13, 82000, baseTime)
	_, err := repo.AppendFloodEvent(context.Background(), e)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCheckReadiness(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.CheckReadiness(context.Background()))
}
