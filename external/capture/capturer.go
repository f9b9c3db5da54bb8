package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/failure"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/foxseedlab/tsuyaku/internal/transcription"
)

const (
	defaultChunkSize = 4096
	eventBuffer      = 64
)

// Capturer feeds PCM from an audio source into a streaming recognizer and
// reports recognition as transcription events.
type Capturer struct {
	source    audio.Source
	stt       transcriber.Transcriber
	chunkSize int
}

func NewCapturer(source audio.Source, stt transcriber.Transcriber) *Capturer {
	return &Capturer{source: source, stt: stt, chunkSize: defaultChunkSize}
}

func (c *Capturer) Start(ctx context.Context, localeTag string) (transcription.Stream, error) {
	sess, err := c.source.Start(ctx)
	if err != nil {
		return nil, failure.Wrap(failure.CaptureError, fmt.Errorf("failed to open audio source: %w", err))
	}

	format := c.source.Format()
	s := &stream{
		id:     uuid.NewString(),
		events: make(chan transcription.Event, eventBuffer),
		audio:  sess,
		done:   make(chan struct{}),
	}
	writer, err := c.stt.StartStreaming(ctx, transcriber.StreamConfig{
		SessionID:  s.id,
		Language:   localeTag,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}, s)
	if err != nil {
		_ = sess.Stop()
		_ = sess.Close()
		return nil, failure.Wrap(failure.CaptureError, fmt.Errorf("failed to start recognizer: %w", err))
	}
	s.writer = writer

	slog.Info("capture stream started", "stream_id", s.id, "locale", localeTag, "sample_rate", format.SampleRate, "channels", format.Channels)
	go s.pump(c.chunkSize)
	return s, nil
}

type stream struct {
	id     string
	events chan transcription.Event
	audio  audio.Session
	writer transcriber.StreamWriter
	done   chan struct{}

	mu        sync.Mutex
	closed    bool
	nextIndex int
	stopOnce  sync.Once
	stopping  atomic.Bool
}

func (s *stream) Events() <-chan transcription.Event {
	return s.events
}

// Stop ends the stream with an End event. Safe to call more than once.
func (s *stream) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		err = s.audio.Stop()
		<-s.done
		if closeErr := s.writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		_ = s.audio.Close()
		s.finish(transcription.Event{Kind: transcription.EventEnd})
		slog.Info("capture stream stopped", "stream_id", s.id)
	})
	return err
}

func (s *stream) OnResults(segments []transcriber.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	results := make([]transcription.Result, 0, len(segments))
	interim := 0
	for _, seg := range segments {
		if seg.IsFinal {
			results = append(results, transcription.Result{Index: s.nextIndex, Text: seg.Text, IsFinal: true})
			s.nextIndex++
			continue
		}
		results = append(results, transcription.Result{Index: s.nextIndex + interim, Text: seg.Text})
		interim++
	}
	if len(results) == 0 {
		return
	}
	s.events <- transcription.Event{Kind: transcription.EventResults, Results: results}
}

func (s *stream) OnError(err error) {
	slog.Error("recognizer failed", "error", err, "stream_id", s.id)
	go func() {
		_ = s.audio.Stop()
	}()
	s.finish(transcription.Event{Kind: transcription.EventError, Err: err})
}

// finish emits the terminal event and closes the channel, once.
func (s *stream) finish(ev transcription.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.events <- ev
	close(s.events)
}

func (s *stream) pump(chunkSize int) {
	defer close(s.done)

	buf := make([]byte, chunkSize)
	for {
		n, err := s.audio.Read(buf)
		if n > 0 {
			if sendErr := s.writer.Write(buf[:n]); sendErr != nil {
				s.OnError(fmt.Errorf("failed to stream audio: %w", sendErr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.stopping.Load() {
				s.OnError(fmt.Errorf("audio capture error: %w", err))
			}
			return
		}
	}
}
