package webhook

import "context"

const TranslationWebhookSchemaVersion = "1"

type TranslationWebhookPayload struct {
	SchemaVersion      string `json:"schema_version"`
	SessionID          string `json:"session_id"`
	SourceLanguageCode string `json:"source_language_code"`
	TargetLanguageCode string `json:"target_language_code"`
	SourceLanguage     string `json:"source_language"`
	TargetLanguage     string `json:"target_language"`
	TranslatedText     string `json:"translated_text"`
	TranslatedAt       string `json:"translated_at"`
}

type Sender interface {
	SendTranslation(ctx context.Context, payload TranslationWebhookPayload) error
}
