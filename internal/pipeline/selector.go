package pipeline

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

// FilterRecords keeps the records matching selector. An empty selector
// keeps everything.
func FilterRecords(records []parser.FunctionRecord, selector string) []parser.FunctionRecord {
	normalized := NormalizeSelector(selector)
	if normalized == "" {
		return records
	}
	out := make([]parser.FunctionRecord, 0, len(records))
	for _, rec := range records {
		if MatchesSelector(rec, normalized) {
			out = append(out, rec)
		}
	}
	return out
}

// MatchesSelector accepts a file path (or its prefix/suffix), a function
// name (or substring), "file:name", "file:line" or a full identity key.
func MatchesSelector(rec parser.FunctionRecord, selector string) bool {
	file := NormalizeSelector(rec.File)
	name := strings.ToLower(strings.TrimSpace(rec.Name))
	line := strconv.Itoa(rec.Line)

	candidates := []string{
		file,
		name,
		file + ":" + name,
		file + ":" + line,
		file + ":" + name + ":" + line,
	}
	for _, candidate := range candidates {
		if selector == candidate {
			return true
		}
	}

	if strings.HasPrefix(file, selector) || strings.HasSuffix(file, selector) {
		return true
	}
	return strings.Contains(name, selector)
}

func NormalizeSelector(value string) string {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return ""
	}
	normalized = filepath.ToSlash(normalized)
	normalized = strings.TrimPrefix(normalized, "./")
	return strings.ToLower(normalized)
}
