package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
	"github.com/Zhao-zixi/Canalysis/internal/output"
	"github.com/Zhao-zixi/Canalysis/internal/search"
)

type searchMatch struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	File    string  `json:"file"`
	Line    int     `json:"line"`
	Origin  string  `json:"origin"`
	Summary string  `json:"summary,omitempty"`
	Score   float64 `json:"score"`
}

func RunSearch(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveRoot(cmd, nil)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	limit := 10
	if cmd.Flags().Lookup("limit") != nil {
		if limit, err = cmd.Flags().GetInt("limit"); err != nil {
			return fmt.Errorf("failed to read --limit flag: %w", err)
		}
	}
	analysisPath, err := OptionalStringFlag(cmd, "analysis")
	if err != nil {
		return err
	}
	if analysisPath == "" {
		if analysisPath, err = output.FindAnalysis(rootPath); err != nil {
			return err
		}
	}
	results, err := output.LoadAnalysis(analysisPath)
	if err != nil {
		return fmt.Errorf("failed to read analysis: %w", err)
	}

	query := strings.Join(args, " ")
	index := search.Build(results)
	matches := make([]searchMatch, 0, limit)
	for _, hit := range search.Search(index, query, limit) {
		doc, ok := index.Get(hit.ID)
		if !ok {
			continue
		}
		matches = append(matches, searchMatch{
			ID:      doc.ID,
			Name:    doc.Name,
			File:    doc.File,
			Line:    doc.Line,
			Origin:  string(doc.Origin),
			Summary: doc.Summary,
			Score:   hit.Score,
		})
	}

	out := outWriter(cmd)
	if asJSON {
		return fileutil.PrintJSON(out, map[string]any{"query": query, "matches": matches})
	}
	if len(matches) == 0 {
		fmt.Fprintf(out, "no functions match %q\n", query)
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%.3f %s [%s]", m.Score, m.ID, m.Origin)
		if m.Summary != "" {
			fmt.Fprintf(out, " %s", m.Summary)
		}
		fmt.Fprintln(out)
	}
	return nil
}
