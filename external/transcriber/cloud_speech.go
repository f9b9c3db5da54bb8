package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	Model           string
}

type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	location        string
	model           string
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) transcriber.Transcriber {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = "global"
	}
	return &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		location:        location,
		model:           strings.TrimSpace(cfg.Model),
	}
}

func (t *CloudSpeechTranscriber) recognizerName() string {
	return fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location)
}

func (t *CloudSpeechTranscriber) streamingConfig(cfg transcriber.StreamConfig) *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		Recognizer: t.recognizerName(),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         t.model,
					LanguageCodes: []string{cfg.Language},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   int32(cfg.SampleRate),
							AudioChannelCount: int32(cfg.Channels),
						},
					},
					Features: &speechpb.RecognitionFeatures{},
				},
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{InterimResults: true},
			},
		},
	}
}

func (t *CloudSpeechTranscriber) StartStreaming(ctx context.Context, cfg transcriber.StreamConfig, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	slog.Info("starting cloud speech streaming", "session_id", cfg.SessionID, "location", t.location, "language", cfg.Language, "model", t.model)

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if t.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	configReq := t.streamingConfig(cfg)
	open := func() (speechpb.Speech_StreamingRecognizeClient, error) {
		s, err := client.StreamingRecognize(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Send(configReq); err != nil {
			_ = s.CloseSend()
			return nil, err
		}
		return s, nil
	}

	stream, err := open()
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	slog.Info("cloud speech stream initialized", "session_id", cfg.SessionID)

	w := &streamWriter{
		sessionID:   cfg.SessionID,
		stream:      stream,
		receiver:    receiver,
		newStreamFn: open,
		closeFn:     client.Close,
	}
	w.startReceiver(stream)
	return w, nil
}

type streamWriter struct {
	sessionID   string
	mu          sync.Mutex
	closed      bool
	stream      speechpb.Speech_StreamingRecognizeClient
	receiver    transcriber.ResultReceiver
	newStreamFn func() (speechpb.Speech_StreamingRecognizeClient, error)
	closeFn     func() error
}

func (w *streamWriter) Write(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{
			Audio: pcm,
		},
	}
	if err := w.stream.Send(req); err != nil {
		if !isReconnectableStreamError(err) {
			return err
		}
		// Cloud Speech caps a stream at five minutes; continue on a fresh one.
		if err := w.reconnectLocked(); err != nil {
			return fmt.Errorf("reconnect stream: %w", err)
		}
		return w.stream.Send(req)
	}
	return nil
}

func (w *streamWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.stream.CloseSend(); err != nil {
		_ = w.closeFn()
		return err
	}
	return w.closeFn()
}

func (w *streamWriter) reconnectLocked() error {
	slog.Warn("transcriber stream aborted; reconnecting", "session_id", w.sessionID)
	_ = w.stream.CloseSend()
	next, err := w.newStreamFn()
	if err != nil {
		slog.Error("failed to reconnect transcriber stream", "error", err, "session_id", w.sessionID)
		return err
	}
	w.stream = next
	w.startReceiver(next)
	slog.Info("transcriber stream reconnected", "session_id", w.sessionID)
	return nil
}

func (w *streamWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *streamWriter) startReceiver(stream speechpb.Speech_StreamingRecognizeClient) {
	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled || w.isClosed() {
					slog.Debug("transcriber receive loop stopped", "reason", err.Error(), "session_id", w.sessionID)
					return
				}
				if isReconnectableStreamError(err) {
					slog.Warn("transcriber receive loop ended with reconnectable abort", "error", err, "session_id", w.sessionID)
					return
				}
				w.receiver.OnError(err)
				return
			}
			if segments := segmentsFromResponse(resp); len(segments) > 0 {
				w.receiver.OnResults(segments)
			}
		}
	}()
}

func segmentsFromResponse(resp *speechpb.StreamingRecognizeResponse) []transcriber.Segment {
	segments := make([]transcriber.Segment, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		segments = append(segments, transcriber.Segment{
			Text:    result.GetAlternatives()[0].GetTranscript(),
			IsFinal: result.GetIsFinal(),
		})
	}
	return segments
}

func isReconnectableStreamError(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return false
	}
	msg := strings.ToLower(st.Message())
	return strings.Contains(msg, "max duration of 5 minutes") ||
		strings.Contains(msg, "stream timed out after receiving no more client requests")
}
