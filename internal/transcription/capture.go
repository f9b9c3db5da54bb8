package transcription

import "context"

type EventKind string

const (
	EventResults EventKind = "results"
	EventError   EventKind = "error"
	EventEnd     EventKind = "end"
)

// Result is one recognition hypothesis. Index identifies the utterance
// segment within a stream; a final result for an index is never revised.
type Result struct {
	Index   int
	Text    string
	IsFinal bool
}

type Event struct {
	Kind    EventKind
	Results []Result
	Err     error
}

// Stream is one continuous capture. Events is closed after the terminal
// End or Error event.
type Stream interface {
	Events() <-chan Event
	Stop() error
}

// Capturer is the host's speech capture capability.
type Capturer interface {
	Start(ctx context.Context, localeTag string) (Stream, error)
}
