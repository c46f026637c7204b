// Package llm adapts chat-completion backends to the analysis.Summarizer
// interface.
package llm

import (
	"context"
	"errors"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
)

// Prompt is one rendered request for a single function.
type Prompt struct {
	System  string
	User    string
	Request analysis.Request
}

// Client sends a prompt to a model and returns the raw reply text.
// Implementations must be safe for concurrent use.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) ([]byte, error)
	Close() error
}

// ErrEmptyResponse is returned when the backend answered without content.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// PermanentError marks a failure that retrying will not fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError wraps err so Retry gives up immediately.
func NewPermanentError(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is a PermanentError.
func IsPermanent(err error) bool {
	var pErr *PermanentError
	return errors.As(err, &pErr)
}
