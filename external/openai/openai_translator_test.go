package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/foxseedlab/tsuyaku/internal/translator"
)

func TestTranslator_SendsPromptAndTrimsOutput(t *testing.T) {
	var got goopenai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Hello  \n"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	tr := NewTranslator(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1", Model: "gpt-4o-mini", Temperature: 0.3, MaxTokens: 1500})
	out, err := tr.Translate(context.Background(), translator.Request{Text: "Hola", TargetLanguage: "English", SourceLanguage: "Spanish"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello" {
		t.Fatalf("unexpected output: %q", out)
	}
	if got.Model != "gpt-4o-mini" || got.MaxTokens != 1500 || got.Temperature != 0.3 {
		t.Fatalf("unexpected request parameters: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != translator.SystemPrompt {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.Messages[1].Content != translator.BuildPrompt(translator.Request{Text: "Hola", TargetLanguage: "English", SourceLanguage: "Spanish"}) {
		t.Fatalf("unexpected user prompt: %q", got.Messages[1].Content)
	}
}

func TestTranslator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	tr := NewTranslator(Config{APIKey: "bad", BaseURL: server.URL + "/v1"})
	if _, err := tr.Translate(context.Background(), translator.Request{Text: "x", TargetLanguage: "French"}); err == nil {
		t.Fatal("expected api error")
	}
}

func TestTranslator_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	tr := NewTranslator(Config{APIKey: "k", BaseURL: server.URL + "/v1"})
	if _, err := tr.Translate(context.Background(), translator.Request{Text: "x", TargetLanguage: "French"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
