package translation

import "github.com/foxseedlab/tsuyaku/internal/failure"

// Request is built fresh for every translate action. SourceTag may be a
// recognition locale tag, a simple code, or empty for auto-detection.
type Request struct {
	Text       string
	TargetCode string
	SourceTag  string
}

// Result is either Success or Failure.
type Result interface {
	isResult()
}

type Success struct {
	TranslatedText string
	TargetName     string
	SourceName     string
	TargetCode     string
}

type Failure struct {
	Kind    failure.Kind
	Message string
}

func (Success) isResult() {}
func (Failure) isResult() {}

// Err converts a Failure into a *failure.Error.
func (f Failure) Err() error {
	return failure.New(f.Kind, f.Message)
}
