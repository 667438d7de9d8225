package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies why a generation attempt was unusable.
type Kind string

const (
	KindTransport Kind = "TRANSPORT" // network failure, non-2xx, timeout
	KindParse     Kind = "PARSE"     // output is not JSON
	KindSchema    Kind = "SCHEMA"    // JSON, but missing fields or bad enum values
)

// GenerationError wraps a failure of the generative tier. The decision engine
// converts these into fallback executions; they never reach callers.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Transport wraps a transport-level failure.
func Transport(err error) error {
	return &GenerationError{Kind: KindTransport, Err: err}
}

// Parse wraps a JSON decoding failure.
func Parse(err error) error {
	return &GenerationError{Kind: KindParse, Err: err}
}

// Schema reports output that decoded but failed validation.
func Schema(format string, args ...any) error {
	return &GenerationError{Kind: KindSchema, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the generation failure kind of err, or "" if err is not one.
func KindOf(err error) Kind {
	var g *GenerationError
	if stderrors.As(err, &g) {
		return g.Kind
	}
	return ""
}
