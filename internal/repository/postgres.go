package repository

import (
	"database/sql"
	"fmt"

	"github.com/opensource-finance/heron/internal/domain"
	_ "github.com/lib/pq"
)

// openPostgres opens a PostgreSQL database connection. The DSN is a
// lib/pq connection string.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "host=localhost port=5432 user=heron dbname=heron sslmode=disable"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}
