package translation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/foxseedlab/tsuyaku/internal/failure"
	"github.com/foxseedlab/tsuyaku/internal/language"
)

const (
	fallbackFailureMessage   = "Translation request failed"
	fallbackTransportMessage = "Translation API error. Please try again."
)

// Orchestrator turns a Request into a Result through the gateway. It keeps
// no state between calls.
type Orchestrator struct {
	gateway    Gateway
	normalizer *language.Normalizer
}

func NewOrchestrator(gateway Gateway, normalizer *language.Normalizer) *Orchestrator {
	return &Orchestrator{gateway: gateway, normalizer: normalizer}
}

func (o *Orchestrator) Translate(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Text) == "" {
		return Failure{Kind: failure.InvalidRequest, Message: "text is empty"}
	}
	if req.TargetCode == "" {
		return Failure{Kind: failure.InvalidRequest, Message: "target language is not selected"}
	}
	if !o.normalizer.Registry().Has(req.TargetCode) {
		return Failure{Kind: failure.UnsupportedLanguage, Message: "target language " + req.TargetCode}
	}

	sourceCode, err := o.normalizer.ResolveSource(req.SourceTag)
	if err != nil {
		return Failure{Kind: failure.UnsupportedLanguage, Message: "source language " + req.SourceTag}
	}

	payload := GatewayRequest{Text: req.Text, TargetLanguageCode: req.TargetCode}
	if sourceCode != "" {
		payload.SourceLanguageCode = &sourceCode
	}

	resp, err := o.gateway.Translate(ctx, payload)
	if err != nil {
		slog.Error("translation gateway call failed", "error", err, "target", req.TargetCode, "source", sourceCode)
		return Failure{Kind: failure.GatewayError, Message: fallbackTransportMessage}
	}
	if !resp.Success {
		return Failure{Kind: failure.GatewayError, Message: gatewayMessage(resp)}
	}
	return Success{
		TranslatedText: resp.TranslatedText,
		TargetName:     resp.TargetLanguage,
		SourceName:     resp.SourceLanguage,
		TargetCode:     resp.TargetLanguageCode,
	}
}

func gatewayMessage(resp GatewayResponse) string {
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(resp.Message); msg != "" {
		return msg
	}
	return fallbackFailureMessage
}
