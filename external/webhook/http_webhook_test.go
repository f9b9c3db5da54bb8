package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foxseedlab/tsuyaku/internal/webhook"
)

func TestSendTranslation_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendTranslation(context.Background(), webhook.TranslationWebhookPayload{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendTranslation_Success(t *testing.T) {
	var got webhook.TranslationWebhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	payload := webhook.TranslationWebhookPayload{
		SchemaVersion:      webhook.TranslationWebhookSchemaVersion,
		SessionID:          "session-1",
		TargetLanguageCode: "es",
		TargetLanguage:     "Spanish",
		SourceLanguage:     "Auto-detected",
		TranslatedText:     "Hola",
		TranslatedAt:       "2026-01-02T03:04:05Z",
	}
	sender := NewHTTPSender(server.URL)
	if err := sender.SendTranslation(context.Background(), payload); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != payload {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSendTranslation_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendTranslation(context.Background(), webhook.TranslationWebhookPayload{SessionID: "s"}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
