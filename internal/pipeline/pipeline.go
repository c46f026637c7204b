// Package pipeline runs one analysis pass: cache lookups, orchestrated
// analysis of the misses, and persistence of fresh results.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/cache"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

// Stats counts what happened to the records of one run.
type Stats struct {
	Functions   int                        `json:"functions"`
	CacheHits   int                        `json:"cache_hits"`
	Analyzed    int                        `json:"analyzed"`
	Fallbacks   int                        `json:"fallbacks"`
	Failures    map[analysis.ErrorKind]int `json:"failures,omitempty"`
	CacheWrites int                        `json:"cache_writes"`
	Duration    time.Duration              `json:"duration_ns"`
}

// RunReport is the outcome of Run. Results follow the input order.
type RunReport struct {
	Results []analysis.AnalysisResult `json:"-"`
	Stats   Stats                     `json:"stats"`
	// CacheErr is a flush failure; the results are still valid.
	CacheErr error `json:"-"`
}

// Pipeline binds an orchestrator to a cache store.
type Pipeline struct {
	orch   *analysis.Orchestrator
	store  cache.Store
	logger *slog.Logger
}

// New returns a pipeline. A nil store disables caching.
func New(orch *analysis.Orchestrator, store cache.Store, logger *slog.Logger) *Pipeline {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{orch: orch, store: store, logger: logger}
}

// Run serves unchanged functions from the store, analyzes the rest, stores
// every non-fallback result and flushes the store once.
func (p *Pipeline) Run(ctx context.Context, records []parser.FunctionRecord) RunReport {
	start := time.Now()
	report := RunReport{
		Results: make([]analysis.AnalysisResult, len(records)),
		Stats:   Stats{Functions: len(records), Failures: map[analysis.ErrorKind]int{}},
	}

	missIdx := make([]int, 0, len(records))
	misses := make([]parser.FunctionRecord, 0, len(records))
	for i, rec := range records {
		if entry, ok := p.store.Lookup(rec.Key()); ok && entry.Hash == rec.Hash() {
			report.Results[i] = entry.Result
			report.Stats.CacheHits++
			continue
		}
		missIdx = append(missIdx, i)
		misses = append(misses, rec)
	}
	p.logger.Debug("cache lookup done", "hits", report.Stats.CacheHits, "misses", len(misses))

	if len(misses) > 0 {
		fresh := p.orch.Analyze(ctx, misses)
		for j, result := range fresh {
			report.Results[missIdx[j]] = result
			if result.Fallback {
				report.Stats.Fallbacks++
				if result.Failure != "" {
					report.Stats.Failures[result.Failure]++
				}
				continue
			}
			report.Stats.Analyzed++
			p.store.Put(misses[j].Key(), result, misses[j].Hash())
			report.Stats.CacheWrites++
		}
	}

	if report.Stats.CacheWrites > 0 {
		if err := p.store.Flush(); err != nil {
			p.logger.Warn("failed to write analysis cache", "err", err)
			report.CacheErr = err
		}
	}
	report.Stats.Duration = time.Since(start)
	return report
}
