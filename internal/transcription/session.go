package transcription

import (
	"strings"

	"github.com/foxseedlab/tsuyaku/internal/failure"
)

type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
)

const finalSeparator = " "

type Transcript struct {
	FinalizedText string
	InterimText   string
	IsCapturing   bool
	LocaleTag     string
}

// Session is the capture state machine. It is not safe for concurrent use;
// the owner serialises calls.
type Session struct {
	state     State
	localeTag string
	finalized strings.Builder
	interim   string
	// indices already appended for the current stream
	appended map[int]struct{}
}

func NewSession() *Session {
	return &Session{state: StateIdle, appended: make(map[int]struct{})}
}

func (s *Session) State() State {
	return s.state
}

// Begin moves Idle → Capturing for a new stream. Finalized text is kept;
// result indices restart with every stream.
func (s *Session) Begin(localeTag string) {
	s.state = StateCapturing
	s.localeTag = localeTag
	s.interim = ""
	s.appended = make(map[int]struct{})
}

// Apply is the transition function for capture events. A returned error is
// a CaptureError; finalized text survives it.
func (s *Session) Apply(ev Event) (Transcript, error) {
	switch ev.Kind {
	case EventResults:
		if s.state != StateCapturing {
			return s.Snapshot(), nil
		}
		s.applyResults(ev.Results)
		return s.Snapshot(), nil
	case EventError:
		s.End()
		if ev.Err == nil {
			return s.Snapshot(), failure.New(failure.CaptureError, "")
		}
		return s.Snapshot(), failure.Wrap(failure.CaptureError, ev.Err)
	case EventEnd:
		s.End()
		return s.Snapshot(), nil
	default:
		return s.Snapshot(), nil
	}
}

func (s *Session) applyResults(results []Result) {
	var interim strings.Builder
	for _, r := range results {
		if _, done := s.appended[r.Index]; done {
			continue
		}
		if r.IsFinal {
			s.appended[r.Index] = struct{}{}
			s.finalized.WriteString(r.Text)
			s.finalized.WriteString(finalSeparator)
			continue
		}
		interim.WriteString(r.Text)
	}
	s.interim = interim.String()
}

// End moves to Idle. Calling it while Idle is a no-op.
func (s *Session) End() {
	s.state = StateIdle
	s.interim = ""
}

// Clear empties finalized text without touching the capture state.
func (s *Session) Clear() {
	s.finalized.Reset()
}

func (s *Session) Snapshot() Transcript {
	return Transcript{
		FinalizedText: s.finalized.String(),
		InterimText:   s.interim,
		IsCapturing:   s.state == StateCapturing,
		LocaleTag:     s.localeTag,
	}
}
