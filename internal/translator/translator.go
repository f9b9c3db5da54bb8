package translator

import (
	"context"
	"fmt"
)

const SystemPrompt = "You are a professional medical translation assistant. Translate the given text accurately to the target language while preserving its meaning and context."

// Request names languages by display name, which is what the model sees.
// An empty SourceLanguage asks the model to detect it.
type Request struct {
	Text           string
	TargetLanguage string
	SourceLanguage string
}

type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

func BuildPrompt(req Request) string {
	if req.SourceLanguage != "" {
		return fmt.Sprintf("Translate the following text from %s to %s. Provide only the translation:\n\n%s", req.SourceLanguage, req.TargetLanguage, req.Text)
	}
	return fmt.Sprintf("Translate the following text to %s. Auto-detect the source language and provide only the translation:\n\n%s", req.TargetLanguage, req.Text)
}
