// Package database opens the Postgres connection and keeps the app tables in
// place. Schema management here is deliberately minimal: CREATE TABLE IF NOT
// EXISTS on startup, no migration framework.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
)

// NewDB opens and pings a Postgres connection. An empty URL falls back to
// the DATABASE_URL environment variable (the config layer has already loaded
// .env by the time this runs).
func NewDB(databaseURL string) (*sql.DB, error) {
	url := strings.TrimSpace(databaseURL)
	if url == "" {
		url = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if url == "" {
		return nil, fmt.Errorf("no database URL configured (set database.url or DATABASE_URL)")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the app tables when they do not exist yet.
func EnsureSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS apps (
			id UUID PRIMARY KEY,
			short_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			tagline TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			spec JSONB NOT NULL,
			generated_code TEXT NOT NULL DEFAULT '',
			theme_color TEXT NOT NULL DEFAULT '',
			quality_score INTEGER,
			quality_breakdown JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS app_versions (
			id BIGSERIAL PRIMARY KEY,
			app_id UUID NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
			generated_code TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id TEXT PRIMARY KEY,
			app_id UUID NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
			stages JSONB NOT NULL,
			selected_candidate_id TEXT NOT NULL DEFAULT '',
			candidate_ids JSONB NOT NULL DEFAULT '[]',
			repaired BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}
