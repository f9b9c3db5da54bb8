package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/foxseedlab/tsuyaku/internal/translation"
	"github.com/foxseedlab/tsuyaku/internal/translator"
)

const (
	msgMissingAPIKey      = "Server configuration error: API key not set. Please check the gateway environment variables."
	msgInvalidJSON        = "Invalid JSON body"
	msgMissingFields      = "Missing required fields: text and targetLanguageCode"
	msgUnsupportedTarget  = "Unsupported target language"
	msgBackendFailure     = "Translation API error"
	msgMethodNotAllowed   = "Method Not Allowed"
	msgTooManyRequests    = "Too Many Requests"
	msgNotFound           = "Not Found"
	msgAuditNotConfigured = "Translation log is not configured"
	autoDetectedSource    = "Auto-detected"

	maxRequestBodyBytes = 1 << 20
	defaultRecentLimit  = 50
)

type TranslateHandler struct {
	translator       translator.Translator
	registry         *language.Registry
	audit            repository.TranslationLogRepository
	apiKeyConfigured bool
}

// NewTranslateHandler accepts a nil audit repository.
func NewTranslateHandler(t translator.Translator, registry *language.Registry, audit repository.TranslationLogRepository, apiKeyConfigured bool) *TranslateHandler {
	return &TranslateHandler{
		translator:       t,
		registry:         registry,
		audit:            audit,
		apiKeyConfigured: apiKeyConfigured,
	}
}

func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	entry := repository.InsertTranslationLogInput{RequestedAt: started.UTC()}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	status, resp := h.translate(r, &entry)
	writeJSON(w, status, resp)

	entry.StatusCode = status
	entry.Latency = time.Since(started)
	if !resp.Success && entry.ErrorMessage == "" {
		entry.ErrorMessage = resp.Error
	}
	h.record(r.Context(), entry)
}

func (h *TranslateHandler) translate(r *http.Request, entry *repository.InsertTranslationLogInput) (int, translation.GatewayResponse) {
	entry.Outcome = repository.TranslationOutcomeRejected

	if !h.apiKeyConfigured {
		slog.Error("translation backend API key is not set")
		return http.StatusInternalServerError, translation.GatewayResponse{Error: msgMissingAPIKey}
	}

	var req translation.GatewayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("invalid translation request body", "error", err)
		return http.StatusBadRequest, translation.GatewayResponse{Error: msgInvalidJSON}
	}
	entry.TextLength = len([]rune(req.Text))
	entry.TargetLanguageCode = req.TargetLanguageCode

	if req.Text == "" || req.TargetLanguageCode == "" {
		return http.StatusBadRequest, translation.GatewayResponse{Error: msgMissingFields}
	}
	target, ok := h.registry.Lookup(req.TargetLanguageCode)
	if !ok {
		return http.StatusBadRequest, translation.GatewayResponse{Error: msgUnsupportedTarget}
	}

	// An unknown source code falls back to auto-detection.
	var source *language.Entry
	if req.SourceLanguageCode != nil {
		if e, ok := h.registry.Lookup(*req.SourceLanguageCode); ok {
			source = &e
			entry.SourceLanguageCode = e.Code
		}
	}

	tr := translator.Request{Text: req.Text, TargetLanguage: target.DisplayName}
	if source != nil {
		tr.SourceLanguage = source.DisplayName
	}
	slog.Debug("translation prompt", "prompt", translator.BuildPrompt(tr))

	translated, err := h.translator.Translate(r.Context(), tr)
	if err != nil {
		slog.Error("translation backend failed", "error", err, "target", target.Code)
		entry.Outcome = repository.TranslationOutcomeBackendFailed
		msg := err.Error()
		if msg == "" {
			msg = msgBackendFailure
		}
		entry.ErrorMessage = msg
		return http.StatusInternalServerError, translation.GatewayResponse{Message: msg, Error: "Error: " + msg}
	}

	translated = strings.TrimSpace(translated)
	entry.Outcome = repository.TranslationOutcomeSuccess
	entry.TranslatedLength = len([]rune(translated))
	sourceName := autoDetectedSource
	if source != nil {
		sourceName = source.DisplayName
	}
	return http.StatusOK, translation.GatewayResponse{
		Success:            true,
		TranslatedText:     translated,
		TargetLanguage:     target.DisplayName,
		SourceLanguage:     sourceName,
		TargetLanguageCode: target.Code,
	}
}

func (h *TranslateHandler) record(ctx context.Context, entry repository.InsertTranslationLogInput) {
	if h.audit == nil {
		return
	}
	if err := h.audit.InsertTranslationLog(context.WithoutCancel(ctx), entry); err != nil {
		slog.Error("failed to record translation log", "error", err, "outcome", entry.Outcome)
	}
}

type translationLogResponse struct {
	ID                 string `json:"id"`
	SourceLanguageCode string `json:"source_language_code,omitempty"`
	TargetLanguageCode string `json:"target_language_code"`
	TextLength         int    `json:"text_length"`
	TranslatedLength   int    `json:"translated_length"`
	Outcome            string `json:"outcome"`
	StatusCode         int    `json:"status_code"`
	ErrorMessage       string `json:"error_message,omitempty"`
	LatencyMS          int64  `json:"latency_ms"`
	RequestedAt        string `json:"requested_at"`
}

// RecentLogs lists the latest audit entries, newest first.
func (h *TranslateHandler) RecentLogs(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgAuditNotConfigured})
		return
	}
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	logs, err := h.audit.ListRecentTranslationLogs(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list translation logs", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to list translation logs"})
		return
	}
	out := make([]translationLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, translationLogResponse{
			ID:                 l.ID,
			SourceLanguageCode: l.SourceLanguageCode,
			TargetLanguageCode: l.TargetLanguageCode,
			TextLength:         l.TextLength,
			TranslatedLength:   l.TranslatedLength,
			Outcome:            string(l.Outcome),
			StatusCode:         l.StatusCode,
			ErrorMessage:       l.ErrorMessage,
			LatencyMS:          l.LatencyMS,
			RequestedAt:        l.RequestedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": out})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	setContractHeaders(w.Header())
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		slog.Warn("failed to write response", "error", err)
	}
}
