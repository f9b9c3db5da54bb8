package transcriber

import "context"

type StreamConfig struct {
	SessionID  string
	Language   string
	SampleRate int
	Channels   int
}

// Segment is one recognition hypothesis. A final segment is never revised.
type Segment struct {
	Text    string
	IsFinal bool
}

type StreamWriter interface {
	Write(pcm []byte) error
	Close() error
}

// ResultReceiver gets every recognizer response in order. OnError is
// called at most once, after which no more results arrive.
type ResultReceiver interface {
	OnResults(segments []Segment)
	OnError(err error)
}

type Transcriber interface {
	StartStreaming(ctx context.Context, cfg StreamConfig, receiver ResultReceiver) (StreamWriter, error)
}
