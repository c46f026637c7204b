package parser

import (
	"fmt"
	"iter"
	"regexp"
)

// headerPattern matches something shaped like a C function definition header:
// an optional return type and qualifiers (which may sit on the line above),
// the name, a parameter list without ';' and the opening brace, possibly on a
// following line.
var headerPattern = regexp.MustCompile(
	`(?m)^[ \t]*(?:[A-Za-z_][\w\s\*\(\),]*?[\s\*])?([A-Za-z_]\w*)\s*\([^;{}]*?\)[ \t\r\n]*\{`,
)

var controlKeywords = map[string]bool{
	"if":     true,
	"for":    true,
	"while":  true,
	"switch": true,
	"do":     true,
}

// Extracted is one header match along with its scan quality.
type Extracted struct {
	Record    FunctionRecord
	Truncated bool // closing brace was never found
}

// ExtractFunctions lazily yields every function definition found in text.
// The sequence can be ranged over any number of times.
func ExtractFunctions(path, text string) iter.Seq[FunctionRecord] {
	return func(yield func(FunctionRecord) bool) {
		for item := range Scan(path, text) {
			if !yield(item.Record) {
				return
			}
		}
	}
}

// Scan is ExtractFunctions with per-record quality information.
func Scan(path, text string) iter.Seq[Extracted] {
	return func(yield func(Extracted) bool) {
		masked := MaskNonCode(text)
		for _, m := range headerPattern.FindAllStringSubmatchIndex(masked, -1) {
			name := masked[m[2]:m[3]]
			if controlKeywords[name] {
				continue
			}
			start := m[0]
			open := m[1] - 1
			end, ok := MatchBrace(text, open)
			item := Extracted{
				Record: FunctionRecord{
					File:   path,
					Name:   name,
					Line:   LineAt(text, start),
					Source: text[start : end+1],
				},
				Truncated: !ok,
			}
			if !yield(item) {
				return
			}
		}
	}
}

// ExtractWithIssues collects every record from text and reports truncated
// bodies as quality issues.
func ExtractWithIssues(path, text string) ([]FunctionRecord, []ParseIssue) {
	var records []FunctionRecord
	var issues []ParseIssue
	for item := range Scan(path, text) {
		records = append(records, item.Record)
		if item.Truncated {
			issues = append(issues, ParseIssue{
				File:     path,
				Language: "c",
				Function: item.Record.Name,
				Line:     item.Record.Line,
				Severity: "warning",
				Message:  fmt.Sprintf("unterminated body for %s, record truncated at end of file", item.Record.Name),
			})
		}
	}
	if lx := scanToEnd(text); lx.Unterminated() {
		issues = append(issues, ParseIssue{
			File:     path,
			Language: "c",
			Severity: "warning",
			Message:  "file ends inside a literal or comment",
		})
	}
	return records, issues
}

func scanToEnd(text string) *Lexer {
	lx := NewLexer(text, 0)
	for {
		if _, _, ok := lx.Next(); !ok {
			return lx
		}
	}
}
