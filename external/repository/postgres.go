package repository

import (
	"context"

	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxRecentTranslationLogs = 500

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) InsertTranslationLog(ctx context.Context, input repository.InsertTranslationLogInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO translation_logs
		 (source_language_code, target_language_code, text_length, translated_length, outcome, status_code, error_message, latency_ms, requested_at)
		 VALUES ($1, $2, $3, $4, $5::translation_outcome, $6, $7, $8, $9)`,
		nullableText(input.SourceLanguageCode),
		input.TargetLanguageCode,
		input.TextLength,
		input.TranslatedLength,
		string(input.Outcome),
		input.StatusCode,
		nullableText(input.ErrorMessage),
		input.Latency.Milliseconds(),
		input.RequestedAt)
	return err
}

func (r *PostgresRepository) ListRecentTranslationLogs(ctx context.Context, limit int) ([]repository.TranslationLog, error) {
	if limit <= 0 || limit > maxRecentTranslationLogs {
		limit = maxRecentTranslationLogs
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, COALESCE(source_language_code, ''), target_language_code, text_length, translated_length,
		        outcome::text, status_code, COALESCE(error_message, ''), latency_ms, requested_at, created_at
		 FROM translation_logs ORDER BY requested_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.TranslationLog
	for rows.Next() {
		var l repository.TranslationLog
		if err := rows.Scan(&l.ID, &l.SourceLanguageCode, &l.TargetLanguageCode, &l.TextLength, &l.TranslatedLength,
			&l.Outcome, &l.StatusCode, &l.ErrorMessage, &l.LatencyMS, &l.RequestedAt, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
