//go:build !opus

package audio

import (
	"log/slog"
	"sync"

	"github.com/foxseedlab/tsuyaku/internal/audio"
)

// Without the opus build tag Discord audio cannot be decoded; the bot
// still runs but hears silence.
type noopMixer struct{}

var warnNoOpus sync.Once

func NewOpusMixer() audio.Mixer {
	warnNoOpus.Do(func() {
		slog.Warn("built without the opus tag; discord voice will be silent")
	})
	return &noopMixer{}
}

func (m *noopMixer) WriteOpusPacket(_ string, _ []byte) {}

func (m *noopMixer) ReadMixedPCM(_ []byte) (int, error) {
	return 0, nil
}

func (m *noopMixer) Close() {}
