package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS retry_attempt_logs (
		id BIGSERIAL PRIMARY KEY,
		job_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		attempt INT NOT NULL,
		error_message TEXT NOT NULL,
		error_code INT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_retry_attempt_logs_job ON retry_attempt_logs (job_id, attempt)`,
	`CREATE TABLE IF NOT EXISTS delivery_events (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		platform TEXT NULL,
		kind TEXT NOT NULL,
		response_time_ms BIGINT NOT NULL DEFAULT 0,
		occurred_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_events_user_time ON delivery_events (user_id, occurred_at)`,
}

// EnsureSchema creates the Postgres tables if they are missing. Safe to call at startup.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, ddl := range postgresSchema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// EnsureSchemaMSSQL creates the retry log table in SQL Server if it is missing.
func EnsureSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	createIfMissing := func(table, ddl string) error {
		q := fmt.Sprintf(`IF OBJECT_ID('%s', 'U') IS NULL BEGIN %s END`, table, ddl)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure table %s: %w", table, err)
		}
		return nil
	}
	return createIfMissing("dbo.retry_attempt_logs", `CREATE TABLE dbo.[retry_attempt_logs] (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		job_id NVARCHAR(255) NOT NULL,
		platform NVARCHAR(32) NOT NULL,
		attempt INT NOT NULL,
		error_message NVARCHAR(MAX) NOT NULL,
		error_code INT NULL,
		created_at DATETIMEOFFSET NOT NULL
	)`)
}
