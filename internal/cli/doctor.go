package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/cache"
	"github.com/Zhao-zixi/Canalysis/internal/config"
	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
	"github.com/Zhao-zixi/Canalysis/internal/languages"
	"github.com/Zhao-zixi/Canalysis/internal/output"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
	"github.com/Zhao-zixi/Canalysis/internal/state"
)

func RunDoctor(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveRoot(cmd, nil)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	audit, err := OptionalBoolFlag(cmd, "audit")
	if err != nil {
		return err
	}
	configFile, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return err
	}

	contextDir := output.ContextPath(rootPath)
	summary := DoctorSummary{
		Mode:       "doctor",
		RootPath:   rootPath,
		ContextDir: contextDir,
	}

	cfg, err := config.Load(rootPath, nil, configFile)
	if err != nil {
		summary.Missing = append(summary.Missing, "valid configuration")
		summary.Suggestions = append(summary.Suggestions, fmt.Sprintf("fix configuration: %v", err))
		cfg = config.Default()
		cfg.Root = rootPath
	}
	summary.ConfigFile = cfg.File
	summary.Provider = cfg.Provider
	summary.AnalysisMode = string(cfg.AnalysisMode())
	summary.CacheBackend = string(cfg.CacheBackend())
	if cfg.File == "" {
		summary.Suggestions = append(summary.Suggestions, "run canalysis init")
	}

	if cfg.AnalysisMode() != analysis.ModeFallback {
		if err := cfg.LLMSettings().CheckCredentials(); err != nil {
			summary.Missing = append(summary.Missing, "provider credentials")
			summary.Suggestions = append(summary.Suggestions, fmt.Sprintf("configure %s: %v", cfg.Provider, err))
		}
	}

	if cfg.CacheBackend() != cache.BackendNone {
		if _, statErr := os.Stat(cfg.CachePath()); statErr == nil {
			store, err := cache.Open(cfg.CacheBackend(), cfg.CachePath())
			var readErr *cache.ReadError
			switch {
			case errors.As(err, &readErr):
				summary.Missing = append(summary.Missing, "readable analysis cache")
				summary.Suggestions = append(summary.Suggestions, "remove "+cfg.CachePath())
			case err != nil:
				return fmt.Errorf("failed to open analysis cache: %w", err)
			}
			if store != nil {
				summary.CacheEntries = store.Len()
				store.Close()
			}
		}
	}

	registry := languages.NewDefaultRegistry()
	summary.Extensions = registry.SupportedExtensions()
	ignoreRules, err := LoadIgnoreRules(rootPath)
	if err != nil {
		return err
	}
	currentHashes, err := fileutil.ScanFileHashes(rootPath, registry, ignoreRules)
	if err != nil {
		return fmt.Errorf("failed to scan files: %w", err)
	}

	if !state.Exists(contextDir) {
		summary.Missing = append(summary.Missing, state.StateFile)
		summary.Suggestions = append(summary.Suggestions, "run canalysis analyze")
	} else if st, err := state.Load(contextDir); err != nil {
		summary.Missing = append(summary.Missing, "valid manifest")
		summary.Suggestions = append(summary.Suggestions, "run canalysis analyze")
	} else {
		changed := st.ChangedFiles(currentHashes)
		deleted := st.DeletedFiles(fileutil.ToSet(mapKeys(currentHashes)))
		summary.Changed = len(changed)
		summary.Deleted = len(deleted)
		summary.Clean = summary.Changed == 0 && summary.Deleted == 0
		if !summary.Clean {
			summary.Suggestions = append(summary.Suggestions, "run canalysis analyze")
		}
		if stale := staleOutputs(contextDir, st.OutputHashes); len(stale) > 0 {
			summary.Missing = append(summary.Missing, "unmodified outputs ("+SummarizePaths(stale, 3)+")")
			summary.Suggestions = append(summary.Suggestions, "run canalysis analyze")
		}
	}

	if audit {
		results, err := auditSources(cmd, rootPath, currentHashes)
		if err != nil {
			return err
		}
		summary.Audit = results
		for _, result := range results {
			if !result.Clean() {
				summary.Missing = append(summary.Missing, "heuristic detection agreement")
				break
			}
		}
	}

	summary.Missing = fileutil.DedupeStrings(summary.Missing)
	sort.Strings(summary.Missing)
	summary.Suggestions = fileutil.DedupeStrings(summary.Suggestions)
	sort.Strings(summary.Suggestions)
	summary.Healthy = summary.Clean && len(summary.Missing) == 0

	return PrintDoctorSummary(outWriter(cmd), summary, asJSON)
}

// staleOutputs lists recorded outputs that are gone or were edited since
// the run that wrote them.
func staleOutputs(contextDir string, recorded map[string]string) []string {
	stale := make([]string, 0)
	for name, want := range recorded {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(contextDir, filepath.FromSlash(name))
		}
		got, err := fileutil.HashFile(path)
		if err != nil || got != want {
			stale = append(stale, name)
		}
	}
	sort.Strings(stale)
	return stale
}

// auditSources runs the heuristic scanner and the C grammar over every
// scanned file.
func auditSources(cmd *cobra.Command, rootPath string, files map[string]string) ([]languages.AuditResult, error) {
	paths := mapKeys(files)
	sort.Strings(paths)

	index := languages.NewSyntaxIndex()
	results := make([]languages.AuditResult, 0, len(paths))
	for _, rel := range paths {
		content, err := os.ReadFile(filepath.Join(rootPath, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		grammar, err := index.Definitions(commandContext(cmd), content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", rel, err)
		}
		heuristic := make([]languages.Definition, 0)
		for rec := range parser.ExtractFunctions(rel, parser.DecodeSource(content)) {
			heuristic = append(heuristic, languages.Definition{Name: rec.Name, Line: rec.Line})
		}
		results = append(results, languages.Compare(rel, heuristic, grammar))
	}
	return results, nil
}
