package repository

import "time"

type TranslationOutcome string

const (
	TranslationOutcomeSuccess       TranslationOutcome = "success"
	TranslationOutcomeRejected      TranslationOutcome = "rejected"
	TranslationOutcomeBackendFailed TranslationOutcome = "backend_failed"
)

// TranslationLog records one gateway call. The translated and source texts
// are never stored, only their sizes.
type TranslationLog struct {
	ID                 string
	SourceLanguageCode string
	TargetLanguageCode string
	TextLength         int
	TranslatedLength   int
	Outcome            TranslationOutcome
	StatusCode         int
	ErrorMessage       string
	LatencyMS          int64
	RequestedAt        time.Time
	CreatedAt          time.Time
}
