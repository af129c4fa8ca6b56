package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		longitude DOUBLE PRECISION,
		latitude DOUBLE PRECISION,
		address TEXT,
		image_url TEXT,
		status TEXT NOT NULL,
		created_by TEXT NOT NULL,
		upvote_count INTEGER NOT NULL DEFAULT 0,
		version BIGINT NOT NULL DEFAULT 0,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_issues_created_by ON issues (created_by, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS issue_upvotes (
		issue_id TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (issue_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS issue_timelines (
		id TEXT PRIMARY KEY,
		issue_id TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_by TEXT NOT NULL,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_issue_timelines_issue ON issue_timelines (issue_id, created_at)`,
}

// Migrate creates the schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	ts := "TIMESTAMP"
	if s.driver == DriverPostgres {
		ts = "TIMESTAMPTZ"
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, strings.ReplaceAll(stmt, "{{ts}}", ts)); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	s.logger.Info("Database schema up to date")
	return nil
}
