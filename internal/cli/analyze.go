package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/cache"
	"github.com/Zhao-zixi/Canalysis/internal/config"
	"github.com/Zhao-zixi/Canalysis/internal/graph"
	"github.com/Zhao-zixi/Canalysis/internal/languages"
	"github.com/Zhao-zixi/Canalysis/internal/llm"
	"github.com/Zhao-zixi/Canalysis/internal/output"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
	"github.com/Zhao-zixi/Canalysis/internal/pipeline"
)

func RunAnalyze(cmd *cobra.Command, args []string) error {
	start := time.Now()
	rootPath, err := resolveRoot(cmd, args)
	if err != nil {
		return err
	}
	configFile, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(rootPath, cmd.Flags(), configFile)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	clean, err := OptionalBoolFlag(cmd, "clean")
	if err != nil {
		return err
	}
	selector, err := OptionalStringFlag(cmd, "only")
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := newLogger(cmd, cfg.LogLevel).With("run_id", runID)
	logger.Info("analyze started", "root", rootPath, "mode", cfg.AnalysisMode(), "config", cfg.File)

	if clean {
		if err := output.Clean(rootPath); err != nil {
			return err
		}
	}

	ignoreRules, err := LoadIgnoreRules(rootPath)
	if err != nil {
		return err
	}
	registry := languages.NewDefaultRegistry()
	parseResult, err := registry.ParseDirectory(rootPath, ignoreRules)
	if err != nil {
		return fmt.Errorf("failed to scan source files: %w", err)
	}
	ReportParseIssues(logger, parseResult.Issues)

	records := parseResult.Records()
	if selector != "" {
		records = pipeline.FilterRecords(records, selector)
		if len(records) == 0 {
			return fmt.Errorf("no functions match %q", selector)
		}
	}
	logger.Info("functions extracted", "files", len(parseResult.Files), "functions", len(records))

	quiet, _ := OptionalBoolFlag(cmd, "quiet")
	progress := newAnalyzeProgressReporter(errWriter(cmd), "analyze", asJSON || quiet)

	summarizer, providerName := openSummarizer(cmd, cfg, logger)
	if summarizer != nil {
		defer summarizer.Close()
	}
	opts := analysis.Options{
		Mode:        cfg.AnalysisMode(),
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		Guards:      cfg.GuardScope(),
		Logger:      logger,
		OnResult: func(done, total int, result analysis.AnalysisResult) {
			progress.Update(done, total, result.Name)
		},
	}
	if summarizer != nil {
		opts.Summarizer = summarizer
	}
	orch := analysis.NewOrchestrator(opts)

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	report := pipeline.New(orch, store, logger).Run(commandContext(cmd), records)
	progress.Done(len(records))
	if report.CacheErr != nil {
		logger.Warn("analysis cache not saved", "path", cfg.CachePath(), "err", report.CacheErr)
	}

	outputPath := cfg.OutputPath()
	rewritten := 0
	changed, err := output.WriteAnalysis(outputPath, cfg.OutputFormat(), report.Results)
	if err != nil {
		return fmt.Errorf("failed to write analysis: %w", err)
	}
	if changed {
		rewritten++
	}

	contextDir := output.ContextPath(rootPath)
	graphPath := filepath.Join(contextDir, output.GraphFile)
	changed, err = graph.Build(report.Results).WriteFile(graphPath)
	if err != nil {
		return fmt.Errorf("failed to write call graph: %w", err)
	}
	if changed {
		rewritten++
	}

	if selector == "" {
		if err := PersistState(contextDir, runID, cfg.AnalysisMode(), parseResult, []string{outputPath, graphPath}); err != nil {
			return fmt.Errorf("failed to persist manifest: %w", err)
		}
	}

	failures := make(map[string]int, len(report.Stats.Failures))
	for kind, n := range report.Stats.Failures {
		failures[string(kind)] = n
	}
	summary := RunSummary{
		Mode:        string(cfg.AnalysisMode()),
		RunID:       runID,
		RootPath:    rootPath,
		Provider:    providerName,
		Output:      outputPath,
		Graph:       graphPath,
		Files:       len(parseResult.Files),
		Functions:   report.Stats.Functions,
		CacheHits:   report.Stats.CacheHits,
		Analyzed:    report.Stats.Analyzed,
		Fallbacks:   report.Stats.Fallbacks,
		Failures:    failures,
		CacheWrites: report.Stats.CacheWrites,
		Issues:      len(parseResult.Issues),
		Rewritten:   rewritten,
		DurationMS:  time.Since(start).Milliseconds(),
	}
	logger.Info("analyze finished", "analyzed", summary.Analyzed, "fallbacks", summary.Fallbacks, "cache_hits", summary.CacheHits)
	return PrintRunSummary(outWriter(cmd), summary, asJSON)
}

// openSummarizer builds the provider client. A provider that cannot be set
// up leaves the run on static analysis rather than failing it.
func openSummarizer(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*llm.Summarizer, string) {
	if cfg.AnalysisMode() == analysis.ModeFallback {
		return nil, ""
	}
	settings := cfg.LLMSettings()
	if err := settings.CheckCredentials(); err != nil {
		logger.Warn("summarizer unavailable, using static analysis", "provider", settings.Provider, "err", err)
		return nil, ""
	}
	client, err := llm.NewClient(commandContext(cmd), settings)
	if err != nil {
		logger.Warn("summarizer unavailable, using static analysis", "provider", settings.Provider, "err", err)
		return nil, ""
	}
	return llm.NewSummarizer(client), client.Name()
}

// openStore returns the configured cache. An unreadable cache is reported
// and replaced by an empty one.
func openStore(cfg *config.Config, logger *slog.Logger) (cache.Store, error) {
	store, err := cache.Open(cfg.CacheBackend(), cfg.CachePath())
	if err == nil {
		return store, nil
	}
	var readErr *cache.ReadError
	if errors.As(err, &readErr) && store != nil {
		logger.Warn("analysis cache unreadable, starting empty", "path", readErr.Path, "err", readErr.Err)
		return store, nil
	}
	return nil, fmt.Errorf("failed to open analysis cache: %w", err)
}

func ReportParseIssues(logger *slog.Logger, issues []parser.ParseIssue) {
	for _, issue := range issues {
		attrs := []any{"file", issue.File, "severity", issue.Severity}
		if issue.Function != "" {
			attrs = append(attrs, "function", issue.Function)
		}
		if issue.Line > 0 {
			attrs = append(attrs, "line", issue.Line)
		}
		logger.Warn(issue.Message, attrs...)
	}
}
