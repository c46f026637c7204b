package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
)

// Summarizer renders prompts, sends them through a Client and validates the
// replies.
type Summarizer struct {
	client Client
}

func NewSummarizer(client Client) *Summarizer {
	return &Summarizer{client: client}
}

// Name reports the underlying client.
func (s *Summarizer) Name() string { return s.client.Name() }

// Summarize returns a validated response or an analysis.SummarizerError.
func (s *Summarizer) Summarize(ctx context.Context, req analysis.Request) (analysis.Response, error) {
	raw, err := s.client.Generate(ctx, BuildPrompt(req))
	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return analysis.Response{}, analysis.FormatError(err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return analysis.Response{}, analysis.TransportError(fmt.Errorf("timed out: %w", err))
		}
		return analysis.Response{}, analysis.TransportError(err)
	}
	return analysis.ParseResponse(StripCodeFence(raw))
}

// Close releases the client.
func (s *Summarizer) Close() error { return s.client.Close() }
