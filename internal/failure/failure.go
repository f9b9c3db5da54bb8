package failure

import (
	"errors"
	"fmt"
)

type Kind string

const (
	CaptureUnavailable   Kind = "capture_unavailable"
	CaptureError         Kind = "capture_error"
	InvalidRequest       Kind = "invalid_request"
	UnsupportedLanguage  Kind = "unsupported_language"
	GatewayError         Kind = "gateway_error"
	NoPlaybackCapability Kind = "no_playback_capability"
	EmptyText            Kind = "empty_text"
	PlaybackError        Kind = "playback_error"
)

// Error is a failure tagged with its kind. errors.Is matches any *Error of
// the same kind, so the sentinels below work as targets.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

var (
	ErrCaptureUnavailable   = &Error{Kind: CaptureUnavailable}
	ErrCaptureError         = &Error{Kind: CaptureError}
	ErrInvalidRequest       = &Error{Kind: InvalidRequest}
	ErrUnsupportedLanguage  = &Error{Kind: UnsupportedLanguage}
	ErrGatewayError         = &Error{Kind: GatewayError}
	ErrNoPlaybackCapability = &Error{Kind: NoPlaybackCapability}
	ErrEmptyText            = &Error{Kind: EmptyText}
	ErrPlaybackError        = &Error{Kind: PlaybackError}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Message renders err for a human. Every kind has a fallback so that no
// failure reaches the user without text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if !errors.As(err, &fe) {
		return err.Error()
	}
	switch fe.Kind {
	case CaptureUnavailable:
		return "Speech recognition is not available in this environment."
	case CaptureError:
		return withDetail("Speech recognition stopped", fe.Message)
	case InvalidRequest:
		return withDetail("Nothing to translate", fe.Message)
	case UnsupportedLanguage:
		return withDetail("Unsupported language", fe.Message)
	case GatewayError:
		if fe.Message != "" {
			return fe.Message
		}
		return "Translation API error. Please try again."
	case NoPlaybackCapability:
		return "Text-to-Speech is not supported in this environment."
	case EmptyText:
		return "No translated text to speak."
	case PlaybackError:
		return withDetail("Speech error", fe.Message)
	default:
		return fe.Error()
	}
}

func withDetail(prefix, detail string) string {
	if detail == "" {
		return prefix + "."
	}
	return prefix + ": " + detail
}
