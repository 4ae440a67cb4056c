package repository

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// openPostgres opens a PostgreSQL connection from a lib/pq DSN.
func openPostgres(cfg Config) (*sql.DB, error) {
	if cfg.PostgresDSN == "" {
		return nil, errors.New("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres database: %w", err)
	}
	return db, nil
}
