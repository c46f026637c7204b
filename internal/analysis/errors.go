package analysis

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind groups Summarizer failures.
type ErrorKind string

const (
	ErrorTransport ErrorKind = "transport"
	ErrorFormat    ErrorKind = "format"
	ErrorInternal  ErrorKind = "internal"
)

// SummarizerError is a Summarizer failure with its kind attached.
type SummarizerError struct {
	Kind ErrorKind
	Err  error
}

func (e *SummarizerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SummarizerError) Unwrap() error { return e.Err }

// TransportError marks err as a failure to reach or hear back from the Summarizer.
func TransportError(err error) error {
	return &SummarizerError{Kind: ErrorTransport, Err: err}
}

// FormatError marks err as an unusable Summarizer response.
func FormatError(err error) error {
	return &SummarizerError{Kind: ErrorFormat, Err: err}
}

// Classify returns err as a SummarizerError. Unclassified errors count as
// transport failures.
func Classify(err error) *SummarizerError {
	if err == nil {
		return nil
	}
	var se *SummarizerError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SummarizerError{Kind: ErrorTransport, Err: fmt.Errorf("timed out: %w", err)}
	}
	return &SummarizerError{Kind: ErrorTransport, Err: err}
}
