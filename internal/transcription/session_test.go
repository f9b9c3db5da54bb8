package transcription

import (
	"errors"
	"testing"

	"github.com/foxseedlab/tsuyaku/internal/failure"
)

func results(rs ...Result) Event {
	return Event{Kind: EventResults, Results: rs}
}

func TestApply_FinalAppendedOnceEvenWhenReplayed(t *testing.T) {
	s := NewSession()
	s.Begin("en-US")

	ev := results(Result{Index: 0, Text: "hello", IsFinal: true})
	s.Apply(ev)
	s.Apply(ev)
	got, _ := s.Apply(results(
		Result{Index: 0, Text: "hello", IsFinal: true},
		Result{Index: 1, Text: "world", IsFinal: true},
	))

	if got.FinalizedText != "hello world " {
		t.Fatalf("unexpected finalized text: %q", got.FinalizedText)
	}
}

func TestApply_InterimIsReplacedNotAccumulated(t *testing.T) {
	s := NewSession()
	s.Begin("en-US")

	s.Apply(results(Result{Index: 0, Text: "hel"}))
	s.Apply(results(Result{Index: 0, Text: "hello"}))
	got, _ := s.Apply(results(Result{Index: 0, Text: "hello there"}))

	if got.InterimText != "hello there" {
		t.Fatalf("unexpected interim text: %q", got.InterimText)
	}
	if got.FinalizedText != "" {
		t.Fatalf("interim must not leak into finalized text: %q", got.FinalizedText)
	}
}

func TestApply_FinalClearsInterimOfSameEvent(t *testing.T) {
	s := NewSession()
	s.Begin("en-US")

	s.Apply(results(Result{Index: 0, Text: "good"}))
	got, _ := s.Apply(results(Result{Index: 0, Text: "good morning", IsFinal: true}))

	if got.InterimText != "" {
		t.Fatalf("expected interim cleared, got %q", got.InterimText)
	}
	if got.FinalizedText != "good morning " {
		t.Fatalf("unexpected finalized text: %q", got.FinalizedText)
	}
}

func TestApply_ErrorEndsCaptureAndKeepsText(t *testing.T) {
	s := NewSession()
	s.Begin("en-US")
	s.Apply(results(Result{Index: 0, Text: "keep me", IsFinal: true}))

	got, err := s.Apply(Event{Kind: EventError, Err: errors.New("network")})
	if !errors.Is(err, failure.ErrCaptureError) {
		t.Fatalf("expected capture error, got %v", err)
	}
	if got.IsCapturing {
		t.Fatal("expected idle after error")
	}
	if got.FinalizedText != "keep me " {
		t.Fatalf("finalized text lost: %q", got.FinalizedText)
	}
}

func TestApply_ResultsIgnoredWhenIdle(t *testing.T) {
	s := NewSession()
	got, _ := s.Apply(results(Result{Index: 0, Text: "late", IsFinal: true}))
	if got.FinalizedText != "" {
		t.Fatalf("idle session must not accept results: %q", got.FinalizedText)
	}
}

func TestClear_KeepsCaptureState(t *testing.T) {
	s := NewSession()
	s.Begin("en-US")
	s.Apply(results(Result{Index: 0, Text: "one", IsFinal: true}, Result{Index: 1, Text: "two", IsFinal: true}))

	s.Clear()
	got := s.Snapshot()
	if got.FinalizedText != "" {
		t.Fatalf("expected empty text after clear, got %q", got.FinalizedText)
	}
	if !got.IsCapturing {
		t.Fatal("clear must not stop capture")
	}

	s.Apply(results(Result{Index: 1, Text: "two", IsFinal: true}))
	if got := s.Snapshot().FinalizedText; got != "" {
		t.Fatalf("replayed index must stay deduplicated after clear, got %q", got)
	}
}

func TestBegin_NewStreamRestartsIndices(t *testing.T) {
	s := NewSession()
	s.Begin("en-US")
	s.Apply(results(Result{Index: 0, Text: "first", IsFinal: true}))
	s.End()
	s.End()

	s.Begin("es-ES")
	got, _ := s.Apply(results(Result{Index: 0, Text: "segundo", IsFinal: true}))
	if got.FinalizedText != "first segundo " {
		t.Fatalf("unexpected finalized text: %q", got.FinalizedText)
	}
	if got.LocaleTag != "es-ES" {
		t.Fatalf("unexpected locale: %q", got.LocaleTag)
	}
}
