package queue

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownJob       = errors.New("queue: no handler registered for job")
	ErrTaskTimeout      = errors.New("queue: task exceeded its timeout")
	ErrDeadlineExceeded = errors.New("queue: task retry deadline exceeded")
	ErrAttemptsExceeded = errors.New("queue: task attempted too many times")
)

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Retryable marks err as a handled failure that should follow the backoff
// schedule. Plain errors are treated the same way.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// Fatal marks err as permanent. The task fails without further attempts.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal
func IsFatal(err error) bool {
	var f *fatalError
	return errors.As(err, &f)
}

// PanicError wraps a value recovered from a handler panic
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("queue: handler panicked: %v", e.Value)
}

// isException reports whether err counts against Policy.MaxExceptions
func isException(err error) bool {
	var p *PanicError
	return errors.As(err, &p) || errors.Is(err, ErrTaskTimeout)
}
