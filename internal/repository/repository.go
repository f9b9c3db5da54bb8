package repository

import (
	"context"
	"time"
)

type InsertTranslationLogInput struct {
	SourceLanguageCode string
	TargetLanguageCode string
	TextLength         int
	TranslatedLength   int
	Outcome            TranslationOutcome
	StatusCode         int
	ErrorMessage       string
	Latency            time.Duration
	RequestedAt        time.Time
}

type TranslationLogRepository interface {
	InsertTranslationLog(ctx context.Context, input InsertTranslationLogInput) error
	ListRecentTranslationLogs(ctx context.Context, limit int) ([]TranslationLog, error)
}

type Repository interface {
	TranslationLogRepository
}
