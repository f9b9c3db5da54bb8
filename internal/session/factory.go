package session

import (
	"context"

	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/playback"
	"github.com/foxseedlab/tsuyaku/internal/transcription"
	"github.com/foxseedlab/tsuyaku/internal/translation"
	"github.com/foxseedlab/tsuyaku/internal/webhook"
)

// Factory builds Managers that share the orchestrator and webhook but
// own their capture stream and playback controller.
type Factory struct {
	orchestrator *translation.Orchestrator
	normalizer   *language.Normalizer
	webhook      webhook.Sender
}

func NewFactory(orchestrator *translation.Orchestrator, normalizer *language.Normalizer, wh webhook.Sender) *Factory {
	return &Factory{orchestrator: orchestrator, normalizer: normalizer, webhook: wh}
}

// New starts a playback signal loop bound to the returned Manager; it ends
// on Close or when ctx is done. synth may be nil.
func (f *Factory) New(ctx context.Context, capturer transcription.Capturer, synth playback.Synthesizer) *Manager {
	player := playback.NewController(synth, f.normalizer)
	runCtx, cancel := context.WithCancel(ctx)
	go player.Run(runCtx)

	m := NewManager(capturer, f.orchestrator, player, f.normalizer, f.webhook)
	m.OnClose(cancel)
	return m
}
