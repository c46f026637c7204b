package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
	"github.com/Zhao-zixi/Canalysis/internal/languages"
)

type RunSummary struct {
	Mode        string         `json:"mode"`
	RunID       string         `json:"run_id"`
	RootPath    string         `json:"root_path"`
	Provider    string         `json:"provider,omitempty"`
	Output      string         `json:"output"`
	Graph       string         `json:"graph"`
	Files       int            `json:"files"`
	Functions   int            `json:"functions"`
	CacheHits   int            `json:"cache_hits"`
	Analyzed    int            `json:"analyzed"`
	Fallbacks   int            `json:"fallbacks"`
	Failures    map[string]int `json:"failures,omitempty"`
	CacheWrites int            `json:"cache_writes"`
	Issues      int            `json:"issues"`
	Rewritten   int            `json:"rewritten"`
	DurationMS  int64          `json:"duration_ms"`
}

type StatusSummary struct {
	Mode          string   `json:"mode"`
	RootPath      string   `json:"root_path"`
	LastRunID     string   `json:"last_run_id,omitempty"`
	Scanned       int      `json:"scanned"`
	Reused        int      `json:"reused"`
	Changed       int      `json:"changed"`
	New           int      `json:"new"`
	Deleted       int      `json:"deleted"`
	Impacted      int      `json:"impacted"`
	StaleFuncs    int      `json:"stale_functions"`
	DurationMS    int64    `json:"duration_ms"`
	ChangedFiles  []string `json:"changed_files,omitempty"`
	DeletedFiles  []string `json:"deleted_files,omitempty"`
	ImpactedFiles []string `json:"impacted_files,omitempty"`
}

type DoctorSummary struct {
	Mode         string                  `json:"mode"`
	RootPath     string                  `json:"root_path"`
	ContextDir   string                  `json:"context_dir"`
	ConfigFile   string                  `json:"config_file,omitempty"`
	Provider     string                  `json:"provider"`
	AnalysisMode string                  `json:"analysis_mode"`
	CacheBackend string                  `json:"cache_backend"`
	CacheEntries int                     `json:"cache_entries"`
	Extensions   []string                `json:"extensions"`
	Healthy      bool                    `json:"healthy"`
	Clean        bool                    `json:"clean"`
	Changed      int                     `json:"changed"`
	Deleted      int                     `json:"deleted"`
	Missing      []string                `json:"missing,omitempty"`
	Suggestions  []string                `json:"suggestions,omitempty"`
	Audit        []languages.AuditResult `json:"audit,omitempty"`
}

func PrintRunSummary(w io.Writer, summary RunSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	fmt.Fprintf(w, "analyze complete in %dms (mode=%s", summary.DurationMS, summary.Mode)
	if summary.Provider != "" {
		fmt.Fprintf(w, " provider=%s", summary.Provider)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintf(w, "output: %s\n", summary.Output)
	fmt.Fprintf(w, "graph: %s\n", summary.Graph)
	fmt.Fprintf(w, "functions: files=%d functions=%d cache_hits=%d analyzed=%d fallbacks=%d cache_writes=%d\n",
		summary.Files,
		summary.Functions,
		summary.CacheHits,
		summary.Analyzed,
		summary.Fallbacks,
		summary.CacheWrites,
	)
	if len(summary.Failures) > 0 {
		kinds := make([]string, 0, len(summary.Failures))
		for kind := range summary.Failures {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		parts := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, summary.Failures[kind]))
		}
		fmt.Fprintf(w, "failures: %s\n", strings.Join(parts, " "))
	}
	if summary.Issues > 0 {
		fmt.Fprintf(w, "scan issues: %d (run with -v for details)\n", summary.Issues)
	}
	return nil
}

func PrintStatusSummary(w io.Writer, summary StatusSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	fmt.Fprintf(w,
		"status: scanned=%d reused=%d changed=%d new=%d deleted=%d impacted=%d stale_functions=%d duration=%dms\n",
		summary.Scanned,
		summary.Reused,
		summary.Changed,
		summary.New,
		summary.Deleted,
		summary.Impacted,
		summary.StaleFuncs,
		summary.DurationMS,
	)
	if summary.LastRunID != "" {
		fmt.Fprintf(w, "last run: %s\n", summary.LastRunID)
	}
	if len(summary.ChangedFiles) > 0 {
		fmt.Fprintf(w, "changed files (%d): %s\n", len(summary.ChangedFiles), SummarizePaths(summary.ChangedFiles, 8))
	}
	if len(summary.DeletedFiles) > 0 {
		fmt.Fprintf(w, "deleted files (%d): %s\n", len(summary.DeletedFiles), SummarizePaths(summary.DeletedFiles, 8))
	}
	if len(summary.ImpactedFiles) > 0 {
		fmt.Fprintf(w, "impacted files (%d): %s\n", len(summary.ImpactedFiles), SummarizePaths(summary.ImpactedFiles, 8))
	}
	return nil
}

func PrintDoctorSummary(w io.Writer, summary DoctorSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	status := "issues"
	if summary.Healthy {
		status = "ok"
	}
	fmt.Fprintf(w, "doctor: %s\n", status)
	config := summary.ConfigFile
	if config == "" {
		config = "(defaults)"
	}
	fmt.Fprintf(w, "config: %s mode=%s provider=%s\n", config, summary.AnalysisMode, summary.Provider)
	fmt.Fprintf(w, "cache: backend=%s entries=%d\n", summary.CacheBackend, summary.CacheEntries)
	fmt.Fprintf(w, "sources: extensions=%s clean=%t changed=%d deleted=%d\n",
		strings.Join(summary.Extensions, ","),
		summary.Clean,
		summary.Changed,
		summary.Deleted,
	)
	for _, audit := range summary.Audit {
		if audit.Clean() {
			continue
		}
		fmt.Fprintf(w, "audit %s: matched=%d", audit.File, audit.Matched)
		if len(audit.Missed) > 0 {
			fmt.Fprintf(w, " missed=%s", formatDefinitions(audit.Missed))
		}
		if len(audit.Spurious) > 0 {
			fmt.Fprintf(w, " spurious=%s", formatDefinitions(audit.Spurious))
		}
		fmt.Fprintln(w)
	}
	if len(summary.Missing) > 0 {
		fmt.Fprintf(w, "missing (%d): %s\n", len(summary.Missing), strings.Join(summary.Missing, ", "))
	}
	for _, suggestion := range summary.Suggestions {
		fmt.Fprintf(w, "next: %s\n", suggestion)
	}
	return nil
}

func formatDefinitions(defs []languages.Definition) string {
	parts := make([]string, 0, len(defs))
	for _, d := range defs {
		parts = append(parts, fmt.Sprintf("%s:%d", d.Name, d.Line))
	}
	return strings.Join(parts, ",")
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
