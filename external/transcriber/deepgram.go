package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/gorilla/websocket"
)

const (
	defaultDeepgramAPIBase = "https://api.deepgram.com/v1"
	defaultDeepgramModel   = "nova-2"
	deepgramAudioBuffer    = 32
	deepgramFlushTimeout   = 3 * time.Second
)

type DeepgramConfig struct {
	APIKey  string
	APIBase string
	Model   string
}

// DeepgramTranscriber streams linear16 PCM to Deepgram's live websocket.
type DeepgramTranscriber struct {
	cfg    DeepgramConfig
	dialer *websocket.Dialer
}

func NewDeepgramTranscriber(cfg DeepgramConfig) transcriber.Transcriber {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultDeepgramAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultDeepgramModel
	}
	return &DeepgramTranscriber{cfg: cfg, dialer: websocket.DefaultDialer}
}

func (t *DeepgramTranscriber) StartStreaming(ctx context.Context, cfg transcriber.StreamConfig, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	if strings.TrimSpace(t.cfg.APIKey) == "" {
		return nil, errors.New("DEEPGRAM_API_KEY is not configured")
	}
	wsURL, err := buildListenURL(t.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+t.cfg.APIKey)
	conn, _, err := t.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}
	slog.Info("deepgram stream initialized", "session_id", cfg.SessionID, "language", cfg.Language, "model", t.cfg.Model)

	w := &deepgramWriter{
		sessionID: cfg.SessionID,
		conn:      conn,
		receiver:  receiver,
		audio:     make(chan []byte, deepgramAudioBuffer),
		done:      make(chan struct{}),
	}
	w.wg.Add(2)
	go w.readLoop()
	go w.writeLoop()
	go func() {
		w.wg.Wait()
		_ = conn.Close()
		close(w.done)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close()
		case <-w.done:
		}
	}()
	return w, nil
}

type deepgramWriter struct {
	sessionID string
	conn      *websocket.Conn
	receiver  transcriber.ResultReceiver
	audio     chan []byte
	done      chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	errOnce sync.Once
}

func (w *deepgramWriter) Write(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	chunk := append([]byte(nil), pcm...)
	select {
	case w.audio <- chunk:
		return nil
	case <-w.done:
		return io.ErrClosedPipe
	}
}

// Close asks Deepgram to flush pending results and waits for the socket to
// finish.
func (w *deepgramWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.audio)
	}
	w.mu.Unlock()
	select {
	case <-w.done:
	case <-time.After(deepgramFlushTimeout):
		_ = w.conn.Close()
		<-w.done
	}
	return nil
}

func (w *deepgramWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *deepgramWriter) fail(err error) {
	if w.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		slog.Debug("deepgram stream ended", "reason", err.Error(), "session_id", w.sessionID)
		return
	}
	w.errOnce.Do(func() {
		w.receiver.OnError(err)
	})
}

func (w *deepgramWriter) writeLoop() {
	defer w.wg.Done()
	for chunk := range w.audio {
		if err := w.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			w.fail(fmt.Errorf("failed to send audio: %w", err))
			_ = w.conn.Close()
			// Drain so that Write never blocks on a dead socket.
			for range w.audio {
			}
			return
		}
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		slog.Debug("failed to send CloseStream", "error", err, "session_id", w.sessionID)
		_ = w.conn.Close()
	}
}

func (w *deepgramWriter) readLoop() {
	defer w.wg.Done()
	for {
		_, payload, err := w.conn.ReadMessage()
		if err != nil {
			w.fail(fmt.Errorf("failed to read deepgram event: %w", err))
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			continue
		}
		if strings.EqualFold(resp.Type, "Error") {
			msg := strings.TrimSpace(resp.Message)
			if msg == "" {
				msg = "deepgram returned an unknown error"
			}
			w.fail(errors.New(msg))
			_ = w.conn.Close()
			return
		}
		text := resp.transcript()
		if text == "" {
			continue
		}
		w.receiver.OnResults([]transcriber.Segment{{Text: text, IsFinal: resp.IsFinal || resp.SpeechFinal}})
	}
}

type deepgramAlternative struct {
	Transcript string `json:"transcript"`
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []deepgramAlternative `json:"alternatives"`
	} `json:"channel"`
}

func (r deepgramResponse) transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg DeepgramConfig, stream transcriber.StreamConfig) (string, error) {
	base := strings.TrimSpace(cfg.APIBase)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	listenURL, err := url.Parse(strings.TrimRight(base, "/") + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}
	if listenURL.Scheme != "ws" && listenURL.Scheme != "wss" {
		return "", fmt.Errorf("invalid Deepgram API base URL scheme %q", listenURL.Scheme)
	}

	sampleRate := stream.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := stream.Channels
	if channels <= 0 {
		channels = 1
	}
	q := listenURL.Query()
	q.Set("model", cfg.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("channels", strconv.Itoa(channels))
	q.Set("interim_results", "true")
	q.Set("smart_format", "true")
	if stream.Language != "" {
		q.Set("language", stream.Language)
	}
	listenURL.RawQuery = q.Encode()
	return listenURL.String(), nil
}
