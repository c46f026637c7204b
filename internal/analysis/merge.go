package analysis

import (
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

// Merge combines a record with a Summarizer or fallback response.
// A missing origin falls back to the path hint; call edges are cleaned so
// self-calls and duplicates never reach the result.
func Merge(rec parser.FunctionRecord, resp Response) AnalysisResult {
	origin := resp.Origin
	if origin == "" {
		origin = ClassifyOrigin(rec.File)
	}
	return AnalysisResult{
		File:        strings.ReplaceAll(rec.File, "\\", "/"),
		Name:        rec.Name,
		Line:        rec.Line,
		Source:      rec.Source,
		Origin:      origin,
		Summary:     resp.Summary,
		Calls:       NormalizeCalls(resp.Calls, rec.Name),
		Confidence:  resp.Confidence,
		Notes:       resp.Notes,
		ContentHash: parser.Fingerprint(rec.Source),
	}
}

// NormalizeCalls drops self-calls and duplicate (callee, condition) pairs and
// fills empty conditions with "unconditional".
func NormalizeCalls(calls []parser.CallEdge, owner string) []parser.CallEdge {
	out := make([]parser.CallEdge, 0, len(calls))
	seen := make(map[parser.CallEdge]bool, len(calls))
	for _, call := range calls {
		call.Callee = strings.TrimSpace(call.Callee)
		call.Condition = strings.TrimSpace(call.Condition)
		if call.Callee == "" || call.Callee == owner {
			continue
		}
		if call.Condition == "" {
			call.Condition = parser.Unconditional
		}
		if seen[call] {
			continue
		}
		seen[call] = true
		out = append(out, call)
	}
	return out
}
