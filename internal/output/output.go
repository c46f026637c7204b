// Package output names the files a run writes and reads them back.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
)

const (
	ContextDir        = ".canalysis"
	AnalysisFile      = "function_analysis.json"
	AnalysisJSONLFile = "function_analysis.jsonl"
	GraphFile         = "call_graph.json"
	ConfigFile        = "config.yaml"
)

// Format selects how analysis results are written.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: json, jsonl)", raw)
	}
}

// ContextPath returns the context directory under root.
func ContextPath(root string) string {
	return filepath.Join(root, ContextDir)
}

// DefaultAnalysisPath returns where results for format live under root.
func DefaultAnalysisPath(root string, format Format) string {
	if format == FormatJSONL {
		return filepath.Join(ContextPath(root), AnalysisJSONLFile)
	}
	return filepath.Join(ContextPath(root), AnalysisFile)
}

// WriteAnalysis writes results to path and reports whether the file changed.
func WriteAnalysis(path string, format Format, results []analysis.AnalysisResult) (bool, error) {
	if results == nil {
		results = []analysis.AnalysisResult{}
	}
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSONL:
		data, err = fileutil.EncodeJSONL(results)
	default:
		data, err = fileutil.EncodeIndentedJSON(results)
	}
	if err != nil {
		return false, fmt.Errorf("failed to encode analysis: %w", err)
	}
	return fileutil.WriteIfChangedTracked(path, data)
}

// LoadAnalysis reads results written by WriteAnalysis in either format.
func LoadAnalysis(path string) ([]analysis.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var results []analysis.AnalysisResult
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return results, nil
	}
	results, err := fileutil.DecodeJSONL[analysis.AnalysisResult](data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return results, nil
}

// FindAnalysis returns the first existing analysis file under root.
func FindAnalysis(root string) (string, error) {
	for _, format := range []Format{FormatJSON, FormatJSONL} {
		path := DefaultAnalysisPath(root, format)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no analysis found under %s (run canalysis analyze first)", ContextPath(root))
}

// Clean removes the analysis and graph files a previous run left under
// root. The cache, config and manifest are kept.
func Clean(root string) error {
	for _, name := range []string{AnalysisFile, AnalysisJSONLFile, GraphFile} {
		err := os.Remove(filepath.Join(ContextPath(root), name))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}
