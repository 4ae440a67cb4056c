// Command seed loads area profiles and flood history into the repository.
// Without -fixture it loads a built-in sample for Patna.
//
// Usage:
//
//	go run ./cmd/seed -driver sqlite -sqlite floodrisk.db
//	go run ./cmd/seed -driver postgres -dsn "$POSTGRES_DSN" -fixture data.json
package main

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/repository"
)

//go:embed sample.json
var sampleFixture []byte

// fixture is the seed file layout.
type fixture struct {
	Profiles []domain.AreaProfile `json:"profiles"`
	Events   []domain.FloodEvent  `json:"events"`
}

// store is the subset of the repository the seeder writes to.
type store interface {
	SaveAreaProfile(ctx context.Context, p domain.AreaProfile) error
	AppendFloodEvent(ctx context.Context, e domain.FloodEvent) (string, error)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	driver := flag.String("driver", "sqlite", "database driver: sqlite or postgres")
	sqlitePath := flag.String("sqlite", "floodrisk.db", "SQLite database path")
	dsn := flag.String("dsn", "", "PostgreSQL DSN")
	fixturePath := flag.String("fixture", "", "JSON fixture with profiles and events (default: built-in sample)")
	flag.Parse()

	var r io.Reader = bytes.NewReader(sampleFixture)
	if *fixturePath != "" {
		f, err := os.Open(*fixturePath)
		if err != nil {
			return err
		}
		defer f.Close() //nolint:errcheck // read-only
		r = f
	}

	fx, err := loadFixture(r)
	if err != nil {
		return err
	}

	repo, err := repository.New(repository.Config{Driver: *driver, SQLitePath: *sqlitePath, PostgresDSN: *dsn})
	if err != nil {
		return err
	}
	defer repo.Close() //nolint:errcheck // process exits next

	profiles, events, err := seed(context.Background(), repo, fx)
	if err != nil {
		return err
	}
	log.Printf("seeded %d profiles and %d events", profiles, events)
	return nil
}

func loadFixture(r io.Reader) (fixture, error) {
	var fx fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	if len(fx.Profiles) == 0 && len(fx.Events) == 0 {
		return fixture{}, fmt.Errorf("fixture is empty")
	}
	return fx, nil
}

// seed writes profiles before events so city lookups resolve display names.
func seed(ctx context.Context, s store, fx fixture) (profiles, events int, err error) {
	for _, p := range fx.Profiles {
		if err := s.SaveAreaProfile(ctx, p); err != nil {
			return profiles, events, fmt.Errorf("profile %s: %w", p.Key(), err)
		}
		profiles++
	}
	for i, e := range fx.Events {
		if _, err := s.AppendFloodEvent(ctx, e); err != nil {
			return profiles, events, fmt.Errorf("event %d (%s): %w", i, e.Key(), err)
		}
		events++
	}
	return profiles, events, nil
}
