package llm

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
)

// FakeClient answers every prompt locally. By default it returns the static
// analysis of the requested function, tagged so results can be told apart
// from real fallbacks.
type FakeClient struct {
	// Respond overrides the default reply when set.
	Respond func(ctx context.Context, prompt Prompt) ([]byte, error)

	calls atomic.Int64
}

// FakeNote tags results produced by the fake provider.
const FakeNote = "fake_provider"

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "fake" }
func (f *FakeClient) Close() error { return nil }

// Calls returns how many prompts the client has seen.
func (f *FakeClient) Calls() int { return int(f.calls.Load()) }

func (f *FakeClient) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Respond != nil {
		return f.Respond(ctx, prompt)
	}

	req := prompt.Request
	resp := analysis.StaticAnalyze(req.Record())
	resp.Notes = FakeNote
	return json.Marshal(map[string]any{
		"file_path":     req.File,
		"function_name": req.Name,
		"start_line":    req.Line,
		"origin":        resp.Origin,
		"summary":       resp.Summary,
		"calls":         resp.Calls,
		"confidence":    resp.Confidence,
		"notes":         resp.Notes,
	})
}
