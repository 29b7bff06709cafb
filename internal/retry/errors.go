package retry

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed call for the retry loop.
type Kind int

const (
	// KindFatal is the zero value: anything unclassified is not retried.
	KindFatal Kind = iota
	KindRecoverable
	KindParse
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindRecoverable:
		return "recoverable"
	case KindParse:
		return "parse"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "fatal"
	}
}

// Error attaches a Kind to an underlying error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func classify(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Recoverable marks err as transient (network, timeout, rate limit).
func Recoverable(err error) error { return classify(KindRecoverable, err) }

// Fatal marks err as permanent (authentication, malformed request).
func Fatal(err error) error { return classify(KindFatal, err) }

// Parse marks err as a response that did not match the expected structure.
func Parse(err error) error { return classify(KindParse, err) }

// InvalidInput marks err as caused by the caller's input rather than the call.
func InvalidInput(err error) error { return classify(KindInvalidInput, err) }

// KindOf returns the classification of err. A bare context.DeadlineExceeded
// from a per-call timeout counts as recoverable; cancellation never does.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindRecoverable
	}
	return KindFatal
}

// ExhaustedError is returned when every attempt failed with a recoverable error.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsRetryable reports whether a later run could plausibly succeed where err
// was returned.
func IsRetryable(err error) bool {
	var ex *ExhaustedError
	if errors.As(err, &ex) {
		return true
	}
	return KindOf(err) == KindRecoverable
}
