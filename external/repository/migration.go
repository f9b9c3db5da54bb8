package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE translation_outcome AS ENUM ('success', 'rejected', 'backend_failed'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS translation_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		source_language_code TEXT,
		target_language_code TEXT NOT NULL,
		text_length INTEGER NOT NULL,
		translated_length INTEGER NOT NULL DEFAULT 0,
		outcome translation_outcome NOT NULL,
		status_code INTEGER NOT NULL,
		error_message TEXT,
		latency_ms BIGINT NOT NULL,
		requested_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_translation_logs_requested_at ON translation_logs (requested_at DESC)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
