package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/session"
)

// chatPresenter turns session views into voice channel chat messages. Only
// changes are posted: newly finalized text, a new translation, a new error.
type chatPresenter struct {
	discord   discord.Client
	channelID string

	mu              sync.Mutex
	postedFinalized string
	postedTrans     session.Translation
	postedError     string
}

func newChatPresenter(dc discord.Client, channelID string) *chatPresenter {
	return &chatPresenter{discord: dc, channelID: channelID}
}

func (p *chatPresenter) Render(v session.View) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, msg := range p.diff(v) {
		if err := p.discord.SendChannelMessage(p.channelID, msg); err != nil {
			slog.Error("failed to post interpreter message", "error", err, "channel_id", p.channelID, "session_id", v.SessionID)
		}
	}
}

func (p *chatPresenter) diff(v session.View) []string {
	var out []string

	finalized := v.Transcript.FinalizedText
	switch {
	case strings.HasPrefix(finalized, p.postedFinalized):
		if delta := strings.TrimSpace(strings.TrimPrefix(finalized, p.postedFinalized)); delta != "" {
			out = append(out, fmt.Sprintf(messageTranscriptFormat, delta))
		}
	default:
		// Cleared, possibly with new text already appended.
		if delta := strings.TrimSpace(finalized); delta != "" {
			out = append(out, fmt.Sprintf(messageTranscriptFormat, delta))
		}
	}
	p.postedFinalized = finalized

	if v.Translation != nil && *v.Translation != p.postedTrans {
		t := *v.Translation
		out = append(out, fmt.Sprintf(messageTranslationFormat, t.TargetName, t.SourceName, t.Text))
		p.postedTrans = t
	}

	if v.Error != p.postedError {
		if v.Error != "" {
			out = append(out, fmt.Sprintf(messageErrorFormat, v.Error))
		}
		p.postedError = v.Error
	}
	return out
}
