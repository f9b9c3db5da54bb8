package playback

// Voice is one synthesis voice offered by the host.
type Voice struct {
	Name    string
	Lang    string
	Default bool
}

// Utterance is a single request to speak. Rate, Pitch and Volume use the
// 1.0-is-normal scale.
type Utterance struct {
	ID     string
	Text   string
	Lang   string
	Voice  *Voice
	Rate   float64
	Pitch  float64
	Volume float64
}

type SignalKind int

const (
	SignalStarted SignalKind = iota
	SignalEnded
	SignalError
	SignalVoicesChanged
)

func (k SignalKind) String() string {
	switch k {
	case SignalStarted:
		return "started"
	case SignalEnded:
		return "ended"
	case SignalError:
		return "error"
	case SignalVoicesChanged:
		return "voices_changed"
	default:
		return "unknown"
	}
}

// Signal is an asynchronous notification from the synthesizer. UtteranceID
// is empty for SignalVoicesChanged.
type Signal struct {
	Kind        SignalKind
	UtteranceID string
	Err         error
}

// Synthesizer is the host speech-output capability. Speak must not block
// until playback ends; progress is reported on Signals.
type Synthesizer interface {
	Voices() []Voice
	Speak(u Utterance) error
	Cancel()
	Signals() <-chan Signal
}
