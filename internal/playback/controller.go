package playback

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	textlang "golang.org/x/text/language"

	"github.com/foxseedlab/tsuyaku/internal/failure"
	"github.com/foxseedlab/tsuyaku/internal/language"
)

const (
	DefaultRate   = 0.9
	DefaultPitch  = 1.0
	DefaultVolume = 1.0
)

type State struct {
	Speaking    bool
	UtteranceID string
}

// Listener receives every state change and every asynchronous playback
// failure. It is called without the controller lock held.
type Listener interface {
	PlaybackChanged(state State)
	PlaybackFailed(err error)
}

// Controller owns the lifecycle of at most one utterance at a time.
type Controller struct {
	mu         sync.Mutex
	synth      Synthesizer
	normalizer *language.Normalizer
	listener   Listener

	voices    []Voice
	currentID string
	state     State
}

// NewController accepts a nil synthesizer; Speak then reports
// NoPlaybackCapability.
func NewController(synth Synthesizer, normalizer *language.Normalizer) *Controller {
	return &Controller{synth: synth, normalizer: normalizer}
}

func (c *Controller) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

func (c *Controller) Available() bool {
	return c.synth != nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Speak cancels whatever is active or pending before requesting the new
// utterance. The controller stays Silent until the synthesizer signals
// Started.
func (c *Controller) Speak(text, targetCode string) error {
	_, err := c.Play(text, targetCode)
	return err
}

// Play is Speak returning the ID of the requested utterance. The engine is
// called under the controller lock so that the utterance it plays is always
// the one tracked as current.
func (c *Controller) Play(text, targetCode string) (string, error) {
	if c.synth == nil {
		return "", failure.ErrNoPlaybackCapability
	}
	if strings.TrimSpace(text) == "" {
		return "", failure.ErrEmptyText
	}
	tag, err := c.normalizer.ToSynthesisTag(targetCode)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	changed := c.cancelLocked()
	if len(c.voices) == 0 {
		c.voices = c.synth.Voices()
	}
	u := Utterance{
		ID:     uuid.NewString(),
		Text:   text,
		Lang:   tag,
		Voice:  resolveVoice(c.voices, tag),
		Rate:   DefaultRate,
		Pitch:  DefaultPitch,
		Volume: DefaultVolume,
	}
	voiceName := ""
	if u.Voice != nil {
		voiceName = u.Voice.Name
	}
	slog.Debug("speaking translation", "utterance_id", u.ID, "lang", tag, "voice", voiceName)

	c.currentID = u.ID
	speakErr := c.synth.Speak(u)
	if speakErr != nil {
		c.currentID = ""
	}
	state, listener := c.state, c.listener
	c.mu.Unlock()

	if changed && listener != nil {
		listener.PlaybackChanged(state)
	}
	if speakErr != nil {
		return "", failure.Wrap(failure.PlaybackError, speakErr)
	}
	return u.ID, nil
}

// StopUtterance stops playback only while id is still the current
// utterance.
func (c *Controller) StopUtterance(id string) {
	c.mu.Lock()
	if id == "" || c.currentID != id {
		c.mu.Unlock()
		return
	}
	changed := c.cancelLocked()
	state, listener := c.state, c.listener
	c.mu.Unlock()

	if changed && listener != nil {
		listener.PlaybackChanged(state)
	}
}

// Stop is a no-op when nothing is active or pending.
func (c *Controller) Stop() {
	c.mu.Lock()
	changed := c.cancelLocked()
	state, listener := c.state, c.listener
	c.mu.Unlock()

	if changed && listener != nil {
		listener.PlaybackChanged(state)
	}
}

func (c *Controller) cancelLocked() bool {
	if c.currentID == "" && !c.state.Speaking {
		return false
	}
	c.synth.Cancel()
	c.currentID = ""
	wasSpeaking := c.state.Speaking
	c.state = State{}
	return wasSpeaking
}

// HandleSignal applies one synthesizer signal. Signals for utterances
// other than the current one are ignored.
func (c *Controller) HandleSignal(sig Signal) {
	c.mu.Lock()
	if sig.Kind == SignalVoicesChanged {
		if c.synth != nil {
			c.voices = c.synth.Voices()
		}
		c.mu.Unlock()
		return
	}
	if sig.UtteranceID == "" || sig.UtteranceID != c.currentID {
		c.mu.Unlock()
		slog.Debug("ignoring stale playback signal", "signal", sig.Kind.String(), "utterance_id", sig.UtteranceID)
		return
	}

	var failed error
	switch sig.Kind {
	case SignalStarted:
		c.state = State{Speaking: true, UtteranceID: sig.UtteranceID}
	case SignalEnded:
		c.currentID = ""
		c.state = State{}
	case SignalError:
		c.currentID = ""
		c.state = State{}
		failed = failure.Wrap(failure.PlaybackError, sig.Err)
		if failed == nil {
			failed = failure.New(failure.PlaybackError, "synthesis failed")
		}
	}
	state, listener := c.state, c.listener
	c.mu.Unlock()

	if listener == nil {
		return
	}
	listener.PlaybackChanged(state)
	if failed != nil {
		listener.PlaybackFailed(failed)
	}
}

// Run feeds synthesizer signals into HandleSignal until ctx is done or the
// signal channel closes.
func (c *Controller) Run(ctx context.Context) {
	if c.synth == nil {
		return
	}
	signals := c.synth.Signals()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			c.HandleSignal(sig)
		}
	}
}

// resolveVoice prefers an exact locale match, then the first voice sharing
// the base language. nil lets the synthesizer use its default.
func resolveVoice(voices []Voice, tag string) *Voice {
	want := canonicalTag(tag)
	if v, ok := lo.Find(voices, func(v Voice) bool {
		return canonicalTag(v.Lang) == want
	}); ok {
		return &v
	}

	base := baseLanguage(tag)
	if v, ok := lo.Find(voices, func(v Voice) bool {
		return baseLanguage(v.Lang) == base
	}); ok {
		return &v
	}
	return nil
}

func canonicalTag(tag string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
}

func baseLanguage(tag string) string {
	t, err := textlang.Parse(canonicalTag(tag))
	if err != nil {
		return strings.ToLower(language.BaseOf(canonicalTag(tag)))
	}
	base, _ := t.Base()
	return base.String()
}
