package audio

import (
	"context"
	"io"
)

// Format describes raw little-endian 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Session is a live capture. Read returns io.EOF once Stop has been called
// or the underlying device is gone.
type Session interface {
	io.ReadCloser
	Stop() error
}

type Source interface {
	Format() Format
	Start(ctx context.Context) (Session, error)
}
