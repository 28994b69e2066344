// Package db provides PostgreSQL access for the analysis archive:
// completed verdicts, user feedback, and community fraud reports. The
// archive is a write-behind mirror of the Fact Store, so every method
// here is safe to skip when no database is configured.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// schemaStatements holds the archive DDL. Every statement is idempotent
// so startup can apply them unconditionally; pgx requires one statement
// per Exec under the extended protocol.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
		id UUID PRIMARY KEY,
		page_url TEXT NOT NULL DEFAULT '',
		is_fraud BOOLEAN NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		risk_level TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		result JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_page_url ON analyses (page_url)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id UUID PRIMARY KEY,
		page_url TEXT NOT NULL DEFAULT '',
		user_classification TEXT NOT NULL,
		system_classification TEXT NOT NULL,
		was_correct BOOLEAN NOT NULL,
		features JSONB,
		reporter_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id UUID PRIMARY KEY,
		page_url TEXT NOT NULL DEFAULT '',
		domain TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		reporter_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_domain ON reports (domain)`,
}

// EnsureSchema creates the archive tables and indexes if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply archive schema: %w", err)
		}
	}
	return nil
}
