package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Zhao-zixi/Canalysis/internal/callsite"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

// Mode selects how the orchestrator reaches the Summarizer.
type Mode string

const (
	ModeFallback Mode = "fallback" // static analysis only
	ModeSync     Mode = "sync"     // one request at a time
	ModeAsync    Mode = "async"    // up to Concurrency requests in flight
)

// ParseMode accepts the canonical mode names and their long aliases.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fallback", "fallback-only", "static":
		return ModeFallback, nil
	case "sync", "single", "single-request":
		return ModeSync, nil
	case "async", "concurrent", "bounded-concurrent", "":
		return ModeAsync, nil
	default:
		return "", fmt.Errorf("unsupported mode %q (supported: fallback, sync, async)", raw)
	}
}

// DefaultConcurrency is the bound used when none is configured.
const DefaultConcurrency = 5

// Options configures an Orchestrator for a single run.
type Options struct {
	Summarizer  Summarizer
	Mode        Mode
	Concurrency int
	// Timeout bounds each Summarizer call; zero disables it.
	Timeout time.Duration
	// Guards is the guard scope of static fallback results.
	Guards callsite.Scope
	Logger *slog.Logger
	// OnResult is called from worker goroutines after each record finishes.
	OnResult func(done, total int, result AnalysisResult)
}

// Orchestrator fans records out to the Summarizer under a concurrency bound
// and falls back to static analysis per record on any failure.
type Orchestrator struct {
	summarizer  Summarizer
	mode        Mode
	concurrency int
	timeout     time.Duration
	guards      callsite.Scope
	logger      *slog.Logger
	onResult    func(done, total int, result AnalysisResult)
}

// NewOrchestrator applies defaults to opts. Without a Summarizer every record
// takes the fallback path.
func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		summarizer:  opts.Summarizer,
		mode:        opts.Mode,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		guards:      opts.Guards,
		logger:      opts.Logger,
		onResult:    opts.OnResult,
	}
	if o.mode == "" {
		o.mode = ModeAsync
	}
	if o.summarizer == nil {
		o.mode = ModeFallback
	}
	if o.concurrency < 1 {
		o.concurrency = DefaultConcurrency
	}
	if o.mode == ModeSync {
		o.concurrency = 1
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Mode reports the effective mode.
func (o *Orchestrator) Mode() Mode { return o.mode }

// Concurrency reports the effective bound on in-flight Summarizer calls.
func (o *Orchestrator) Concurrency() int { return o.concurrency }

// Analyze returns one result per record, in input order. It only returns
// after every record has either succeeded or fallen back.
func (o *Orchestrator) Analyze(ctx context.Context, records []parser.FunctionRecord) []AnalysisResult {
	results := make([]AnalysisResult, len(records))
	total := len(records)
	var done atomic.Int64

	finish := func(i int, result AnalysisResult) {
		results[i] = result
		n := int(done.Add(1))
		if o.onResult != nil {
			o.onResult(n, total, result)
		}
	}

	if o.mode == ModeFallback {
		for i, rec := range records {
			finish(i, fallback(rec, nil, o.guards))
		}
		return results
	}

	// A plain group: one record failing must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, rec := range records {
		g.Go(func() error {
			finish(i, o.analyzeOne(ctx, rec))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) analyzeOne(ctx context.Context, rec parser.FunctionRecord) (result AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			err := &SummarizerError{Kind: ErrorInternal, Err: fmt.Errorf("summarizer panicked: %v", r)}
			o.logFailure(rec, err)
			result = fallback(rec, err, o.guards)
		}
	}()

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := o.summarizer.Summarize(callCtx, NewRequest(rec))
	if err != nil {
		o.logFailure(rec, err)
		return fallback(rec, err, o.guards)
	}
	return Merge(rec, resp)
}

func (o *Orchestrator) logFailure(rec parser.FunctionRecord, err error) {
	se := Classify(err)
	o.logger.Warn("summarizer failed, using static fallback",
		"kind", string(se.Kind),
		"file", rec.File,
		"function", rec.Name,
		"line", rec.Line,
		"err", se.Err,
	)
}
