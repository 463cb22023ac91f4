package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS lockers (
		locker_number INT PRIMARY KEY,
		state TEXT NOT NULL DEFAULT 'AVAILABLE',
		student_id TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id BIGSERIAL PRIMARY KEY,
		student_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		locker_number INT NOT NULL REFERENCES lockers (locker_number),
		status TEXT NOT NULL,
		lookup_code_hash TEXT NOT NULL DEFAULT '',
		memo TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS applications_student_latest
		ON applications (student_id, id DESC)`,
	`CREATE INDEX IF NOT EXISTS applications_by_status
		ON applications (status)`,
}

// Migrate creates the schema if it does not exist yet. Safe to run on
// every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
