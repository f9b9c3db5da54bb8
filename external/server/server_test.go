package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/foxseedlab/tsuyaku/internal/translation"
	"github.com/foxseedlab/tsuyaku/internal/translator"
)

type mockTranslator struct {
	mu       sync.Mutex
	out      string
	err      error
	requests []translator.Request
}

func (m *mockTranslator) Translate(_ context.Context, req translator.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.out, m.err
}

type mockAudit struct {
	mu      sync.Mutex
	entries []repository.InsertTranslationLogInput
	logs    []repository.TranslationLog
	err     error
}

func (m *mockAudit) InsertTranslationLog(_ context.Context, input repository.InsertTranslationLogInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, input)
	return m.err
}

func (m *mockAudit) ListRecentTranslationLogs(_ context.Context, limit int) ([]repository.TranslationLog, error) {
	if len(m.logs) > limit {
		return m.logs[:limit], nil
	}
	return m.logs, nil
}

func newTestRouter(tr translator.Translator, audit repository.TranslationLogRepository, keySet bool) http.Handler {
	return NewRouter(NewTranslateHandler(tr, language.DefaultRegistry(), audit, keySet), 0)
}

func serve(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, translation.GatewayResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp translation.GatewayResponse
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func assertContractHeaders(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	h := rec.Header()
	if h.Get("Access-Control-Allow-Origin") != "*" ||
		h.Get("Access-Control-Allow-Headers") != "Content-Type" ||
		h.Get("Access-Control-Allow-Methods") != "POST, OPTIONS" ||
		h.Get("Content-Type") != "application/json" {
		t.Fatalf("missing contract headers: %v", h)
	}
}

func TestTranslate_Success(t *testing.T) {
	tr := &mockTranslator{out: "  Hola \n"}
	audit := &mockAudit{}
	h := newTestRouter(tr, audit, true)

	rec, resp := serve(t, h, http.MethodPost, "/translate", `{"text":"Hello","targetLanguageCode":"es","sourceLanguageCode":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	assertContractHeaders(t, rec)
	want := translation.GatewayResponse{Success: true, TranslatedText: "Hola", TargetLanguage: "Spanish", SourceLanguage: "Auto-detected", TargetLanguageCode: "es"}
	if resp != want {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if tr.requests[0].TargetLanguage != "Spanish" || tr.requests[0].SourceLanguage != "" {
		t.Fatalf("unexpected translator request: %+v", tr.requests[0])
	}
	if len(audit.entries) != 1 || audit.entries[0].Outcome != repository.TranslationOutcomeSuccess || audit.entries[0].StatusCode != 200 {
		t.Fatalf("unexpected audit entries: %+v", audit.entries)
	}
	if audit.entries[0].TextLength != 5 || audit.entries[0].TranslatedLength != 4 {
		t.Fatalf("unexpected audit sizes: %+v", audit.entries[0])
	}
}

func TestTranslate_KnownSourceIsNamed(t *testing.T) {
	tr := &mockTranslator{out: "Bonjour"}
	h := newTestRouter(tr, nil, true)

	_, resp := serve(t, h, http.MethodPost, "/.netlify/functions/translate", `{"text":"Hello","targetLanguageCode":"fr","sourceLanguageCode":"en"}`)
	if resp.SourceLanguage != "English" || tr.requests[0].SourceLanguage != "English" {
		t.Fatalf("expected named source, got %+v / %+v", resp, tr.requests[0])
	}
}

func TestTranslate_UnknownSourceFallsBackToAutoDetect(t *testing.T) {
	tr := &mockTranslator{out: "Bonjour"}
	h := newTestRouter(tr, nil, true)

	_, resp := serve(t, h, http.MethodPost, "/translate", `{"text":"Hello","targetLanguageCode":"fr","sourceLanguageCode":"xx"}`)
	if resp.SourceLanguage != "Auto-detected" {
		t.Fatalf("expected auto-detected source, got %+v", resp)
	}
}

func TestTranslate_Preflight(t *testing.T) {
	h := newTestRouter(&mockTranslator{}, nil, true)
	req := httptest.NewRequest(http.MethodOptions, "/translate", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("expected empty 200, got %d %q", rec.Code, rec.Body.String())
	}
	assertContractHeaders(t, rec)
}

func TestTranslate_MethodNotAllowed(t *testing.T) {
	h := newTestRouter(&mockTranslator{}, nil, true)
	rec, _ := serve(t, h, http.MethodGet, "/translate", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	assertContractHeaders(t, rec)
	if strings.TrimSpace(rec.Body.String()) != `{"error":"Method Not Allowed"}` {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestTranslate_MissingAPIKey(t *testing.T) {
	tr := &mockTranslator{}
	h := newTestRouter(tr, nil, false)
	rec, resp := serve(t, h, http.MethodPost, "/translate", `{"text":"Hello","targetLanguageCode":"es"}`)
	if rec.Code != http.StatusInternalServerError || resp.Success || resp.Error != msgMissingAPIKey {
		t.Fatalf("unexpected response: %d %+v", rec.Code, resp)
	}
	if len(tr.requests) != 0 {
		t.Fatal("translator must not be called")
	}
}

func TestTranslate_ClientErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "invalid json", body: `{"text":`, want: msgInvalidJSON},
		{name: "missing text", body: `{"targetLanguageCode":"es"}`, want: msgMissingFields},
		{name: "missing target", body: `{"text":"Hello"}`, want: msgMissingFields},
		{name: "unsupported target", body: `{"text":"Hello","targetLanguageCode":"xx"}`, want: msgUnsupportedTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			audit := &mockAudit{}
			h := newTestRouter(&mockTranslator{}, audit, true)
			rec, resp := serve(t, h, http.MethodPost, "/translate", tc.body)
			if rec.Code != http.StatusBadRequest || resp.Success || resp.Error != tc.want {
				t.Fatalf("unexpected response: %d %+v", rec.Code, resp)
			}
			if len(audit.entries) != 1 || audit.entries[0].Outcome != repository.TranslationOutcomeRejected || audit.entries[0].ErrorMessage != tc.want {
				t.Fatalf("unexpected audit entries: %+v", audit.entries)
			}
		})
	}
}

func TestTranslate_BackendFailure(t *testing.T) {
	audit := &mockAudit{}
	h := newTestRouter(&mockTranslator{err: errors.New("rate limited")}, audit, true)
	rec, resp := serve(t, h, http.MethodPost, "/translate", `{"text":"Hello","targetLanguageCode":"es"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if resp.Success || resp.Message != "rate limited" || resp.Error != "Error: rate limited" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if audit.entries[0].Outcome != repository.TranslationOutcomeBackendFailed {
		t.Fatalf("unexpected audit outcome: %+v", audit.entries[0])
	}
}

func TestTranslate_AuditFailureIsNotSurfaced(t *testing.T) {
	h := newTestRouter(&mockTranslator{out: "Hola"}, &mockAudit{err: errors.New("db down")}, true)
	rec, resp := serve(t, h, http.MethodPost, "/translate", `{"text":"Hello","targetLanguageCode":"es"}`)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("unexpected response: %d %+v", rec.Code, resp)
	}
}

func TestRecentLogs(t *testing.T) {
	requested := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	audit := &mockAudit{logs: []repository.TranslationLog{
		{ID: "a", TargetLanguageCode: "es", Outcome: repository.TranslationOutcomeSuccess, StatusCode: 200, RequestedAt: requested},
		{ID: "b", TargetLanguageCode: "fr", Outcome: repository.TranslationOutcomeRejected, StatusCode: 400, RequestedAt: requested},
	}}
	h := newTestRouter(&mockTranslator{}, audit, true)

	req := httptest.NewRequest(http.MethodGet, "/translations/recent?limit=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Logs []translationLogResponse `json:"logs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Logs) != 1 || body.Logs[0].ID != "a" || body.Logs[0].RequestedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected logs: %+v", body.Logs)
	}
}

func TestRecentLogs_Errors(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&mockTranslator{}, nil, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/translations/recent", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without audit log, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	newTestRouter(&mockTranslator{}, &mockAudit{}, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/translations/recent?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&mockTranslator{}, nil, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTranslate_RateLimitedPerClient(t *testing.T) {
	tr := &mockTranslator{out: "Hola"}
	h := NewRouter(NewTranslateHandler(tr, language.DefaultRegistry(), nil, true), 1)
	body := `{"text":"Hello","targetLanguageCode":"es"}`

	rec, _ := serve(t, h, http.MethodPost, "/translate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	rec, _ = serve(t, h, http.MethodPost, "/translate", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	assertContractHeaders(t, rec)
	if !strings.Contains(rec.Body.String(), msgTooManyRequests) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if len(tr.requests) != 1 {
		t.Fatalf("limited request must not reach the translator, got %d calls", len(tr.requests))
	}

	rec, _ = serve(t, h, http.MethodOptions, "/translate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight must not be limited, got %d", rec.Code)
	}
}
