package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// OpenPostgres connects to PostgreSQL and verifies connectivity.
func OpenPostgres(ctx context.Context, uri string) (*sqlx.DB, error) {
	if uri == "" {
		return nil, fmt.Errorf("POSTGRES_URI is required")
	}

	pgDB, err := sqlx.ConnectContext(ctx, "postgres", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Configure connection pool
	pgDB.SetMaxOpenConns(25)
	pgDB.SetMaxIdleConns(25)
	pgDB.SetConnMaxLifetime(5 * time.Minute)
	pgDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := pgDB.PingContext(ctx); err != nil {
		_ = pgDB.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return pgDB, nil
}
