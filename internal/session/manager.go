package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foxseedlab/tsuyaku/internal/failure"
	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/playback"
	"github.com/foxseedlab/tsuyaku/internal/transcription"
	"github.com/foxseedlab/tsuyaku/internal/translation"
	"github.com/foxseedlab/tsuyaku/internal/webhook"
)

const webhookSendTimeout = 15 * time.Second

var (
	ErrTranslationInProgress = errors.New("cannot clear while a translation is in progress")
	ErrClosed                = errors.New("interpreting session is closed")
)

// Manager drives one interpreting session: a capture stream feeding a
// transcript, translation with last-submitted-wins display, and playback
// of the displayed translation.
type Manager struct {
	id           string
	capturer     transcription.Capturer
	orchestrator *translation.Orchestrator
	player       *playback.Controller
	normalizer   *language.Normalizer
	webhook      webhook.Sender

	// captureMu serialises StartCapture/StopCapture so that at most one
	// stream is ever live.
	captureMu sync.Mutex

	mu         sync.Mutex
	presenter  Presenter
	transcript *transcription.Session
	stream     transcription.Stream
	streamGen  uint64
	seq        translation.Sequence
	pending    bool
	displayed  *Translation
	displayGen uint64
	lastError  string
	closed     bool
	onClose    func()
}

// NewManager accepts a nil capturer (capture unavailable) and a nil
// webhook sender.
func NewManager(capturer transcription.Capturer, orchestrator *translation.Orchestrator, player *playback.Controller, normalizer *language.Normalizer, wh webhook.Sender) *Manager {
	m := &Manager{
		id:           uuid.NewString(),
		capturer:     capturer,
		orchestrator: orchestrator,
		player:       player,
		normalizer:   normalizer,
		webhook:      wh,
		transcript:   transcription.NewSession(),
	}
	player.SetListener(m)
	return m
}

func (m *Manager) ID() string {
	return m.id
}

func (m *Manager) SetPresenter(p Presenter) {
	m.mu.Lock()
	m.presenter = p
	m.mu.Unlock()
}

// StartCapture stops any running stream before starting a new one.
func (m *Manager) StartCapture(ctx context.Context, localeTag string) error {
	if m.capturer == nil {
		return m.fail(failure.ErrCaptureUnavailable)
	}

	m.captureMu.Lock()
	defer m.captureMu.Unlock()

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}

	m.stopStream()

	stream, err := m.capturer.Start(ctx, localeTag)
	if err != nil {
		slog.Error("failed to start capture", "error", err, "session_id", m.id, "locale", localeTag)
		if failure.KindOf(err) == "" {
			err = failure.Wrap(failure.CaptureError, err)
		}
		return m.fail(err)
	}

	m.mu.Lock()
	m.streamGen++
	gen := m.streamGen
	m.stream = stream
	m.transcript.Begin(localeTag)
	m.lastError = ""
	m.mu.Unlock()

	slog.Info("capture started", "session_id", m.id, "locale", localeTag)
	go m.consume(gen, stream)
	m.render()
	return nil
}

// StopCapture is a no-op when not capturing. Pending translations and
// playback are left alone.
func (m *Manager) StopCapture() {
	m.captureMu.Lock()
	stopped := m.stopStream()
	m.captureMu.Unlock()

	if stopped {
		slog.Info("capture stopped", "session_id", m.id)
		m.render()
	}
}

func (m *Manager) stopStream() bool {
	m.mu.Lock()
	stream := m.stream
	wasCapturing := m.transcript.State() == transcription.StateCapturing
	m.stream = nil
	m.streamGen++
	m.transcript.End()
	m.mu.Unlock()

	if stream != nil {
		if err := stream.Stop(); err != nil {
			slog.Warn("failed to stop capture stream", "error", err, "session_id", m.id)
		}
	}
	return stream != nil || wasCapturing
}

func (m *Manager) consume(gen uint64, stream transcription.Stream) {
	for ev := range stream.Events() {
		m.mu.Lock()
		if gen != m.streamGen {
			m.mu.Unlock()
			continue
		}
		_, err := m.transcript.Apply(ev)
		if err != nil {
			slog.Warn("capture stream failed", "error", err, "session_id", m.id)
			m.lastError = failure.Message(err)
		}
		if ev.Kind != transcription.EventResults {
			m.stream = nil
		}
		m.mu.Unlock()
		m.render()
	}
}

// Clear empties the finalized transcript. It is refused while a
// translation is pending.
func (m *Manager) Clear() error {
	m.mu.Lock()
	if m.pending {
		m.mu.Unlock()
		return ErrTranslationInProgress
	}
	m.transcript.Clear()
	m.lastError = ""
	m.mu.Unlock()

	m.render()
	return nil
}

// Translate sends the current transcript text.
func (m *Manager) Translate(ctx context.Context, targetCode string) translation.Result {
	m.mu.Lock()
	snap := m.transcript.Snapshot()
	m.mu.Unlock()

	text := strings.TrimSpace(snap.FinalizedText + snap.InterimText)
	return m.translate(ctx, translation.Request{Text: text, TargetCode: targetCode, SourceTag: snap.LocaleTag})
}

// TranslateText sends user-supplied text. sourceTag may be empty for
// auto-detection.
func (m *Manager) TranslateText(ctx context.Context, text, targetCode, sourceTag string) translation.Result {
	return m.translate(ctx, translation.Request{Text: text, TargetCode: targetCode, SourceTag: sourceTag})
}

func (m *Manager) translate(ctx context.Context, req translation.Request) translation.Result {
	m.mu.Lock()
	ticket := m.seq.Next()
	m.pending = true
	m.setDisplayedLocked(nil)
	m.lastError = ""
	m.mu.Unlock()
	m.player.Stop()
	m.render()

	started := time.Now()
	res := m.orchestrator.Translate(ctx, req)

	m.mu.Lock()
	if !ticket.Current() {
		m.mu.Unlock()
		slog.Debug("dropping stale translation result", "session_id", m.id, "target", req.TargetCode)
		return res
	}
	m.pending = false
	var delivered *Translation
	switch r := res.(type) {
	case translation.Success:
		t := Translation{
			Text:       r.TranslatedText,
			TargetName: r.TargetName,
			SourceName: r.SourceName,
			TargetCode: r.TargetCode,
		}
		m.setDisplayedLocked(&t)
		m.lastError = ""
		delivered = &t
	case translation.Failure:
		m.lastError = failure.Message(r.Err())
	}
	m.mu.Unlock()
	if delivered != nil {
		m.player.Stop()
	}

	slog.Info("translation finished",
		"session_id", m.id,
		"target", req.TargetCode,
		"source", req.SourceTag,
		"success", delivered != nil,
		"elapsed_ms", time.Since(started).Milliseconds())

	if delivered != nil {
		m.notifyWebhook(req.SourceTag, *delivered)
	}
	m.render()
	return res
}

// setDisplayedLocked replaces the displayed translation. Callers stop the
// player once m.mu is released; any Speak that read the previous
// translation sees the generation change and stops its own utterance.
func (m *Manager) setDisplayedLocked(t *Translation) {
	if t != nil {
		c := *t
		t = &c
	}
	m.displayed = t
	m.displayGen++
}

func (m *Manager) notifyWebhook(sourceTag string, t Translation) {
	if m.webhook == nil {
		return
	}
	payload := webhook.TranslationWebhookPayload{
		SchemaVersion:      webhook.TranslationWebhookSchemaVersion,
		SessionID:          m.id,
		TargetLanguageCode: t.TargetCode,
		TargetLanguage:     t.TargetName,
		SourceLanguage:     t.SourceName,
		TranslatedText:     t.Text,
		TranslatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	if code, err := m.normalizer.ResolveSource(sourceTag); err == nil {
		payload.SourceLanguageCode = code
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookSendTimeout)
		defer cancel()
		if err := m.webhook.SendTranslation(ctx, payload); err != nil {
			slog.Error("failed to send translation webhook", "error", err, "session_id", m.id)
		}
	}()
}

// Speak plays the displayed translation, replacing any current utterance.
func (m *Manager) Speak() error {
	m.mu.Lock()
	var text, code string
	if m.displayed != nil {
		text, code = m.displayed.Text, m.displayed.TargetCode
	}
	gen := m.displayGen
	m.mu.Unlock()

	id, err := m.player.Play(text, code)
	if err != nil {
		return m.fail(err)
	}

	m.mu.Lock()
	stale := gen != m.displayGen
	m.mu.Unlock()
	if stale {
		slog.Debug("displayed translation changed while speaking, stopping", "session_id", m.id, "utterance_id", id)
		m.player.StopUtterance(id)
	}
	return nil
}

func (m *Manager) StopSpeaking() {
	m.player.Stop()
}

// ToggleSpeak stops playback when speaking and speaks otherwise.
func (m *Manager) ToggleSpeak() error {
	if m.player.State().Speaking {
		m.player.Stop()
		return nil
	}
	return m.Speak()
}

func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.transcript.Snapshot()
	v := View{
		SessionID:   m.id,
		Transcript:  snap,
		SourceName:  m.normalizer.SourceDisplayName(snap.LocaleTag),
		Translating: m.pending,
		Playback:    m.player.State(),
		Error:       m.lastError,
	}
	if m.displayed != nil {
		t := *m.displayed
		v.Translation = &t
	}
	return v
}

// OnClose registers a callback run once by Close.
func (m *Manager) OnClose(fn func()) {
	m.mu.Lock()
	m.onClose = fn
	m.mu.Unlock()
}

// Close stops capture and playback. A translation still in flight is
// left to finish and is discarded.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.seq.Next()
	m.pending = false
	onClose := m.onClose
	m.mu.Unlock()

	m.StopCapture()
	m.player.Stop()
	if onClose != nil {
		onClose()
	}
	slog.Info("interpreting session closed", "session_id", m.id)
}

func (m *Manager) PlaybackChanged(playback.State) {
	m.render()
}

func (m *Manager) PlaybackFailed(err error) {
	slog.Warn("playback failed", "error", err, "session_id", m.id)
	m.mu.Lock()
	m.lastError = failure.Message(err)
	m.mu.Unlock()
	m.render()
}

func (m *Manager) fail(err error) error {
	m.mu.Lock()
	m.lastError = failure.Message(err)
	m.mu.Unlock()
	m.render()
	return err
}

func (m *Manager) render() {
	m.mu.Lock()
	p := m.presenter
	m.mu.Unlock()
	if p == nil {
		return
	}
	p.Render(m.View())
}
