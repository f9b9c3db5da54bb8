package session

import (
	"github.com/foxseedlab/tsuyaku/internal/playback"
	"github.com/foxseedlab/tsuyaku/internal/transcription"
)

// Translation is the translation currently on display.
type Translation struct {
	Text       string
	TargetName string
	SourceName string
	TargetCode string
}

type View struct {
	SessionID   string
	Transcript  transcription.Transcript
	SourceName  string
	Translating bool
	Translation *Translation
	Playback    playback.State
	Error       string
}

// Presenter receives a fresh View after every change. Render is called
// without any session lock held and may be called from several goroutines.
type Presenter interface {
	Render(view View)
}
