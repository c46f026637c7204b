// Package callsite finds direct calls inside a C function body and infers
// the guard condition each call runs under.
package callsite

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

var callPattern = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`)

// notCalls are words that can precede '(' without being a call.
var notCalls = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true, "sizeof": true,
	"do": true, "else": true, "case": true, "goto": true,
	"defined": true, "typeof": true, "__typeof__": true, "alignof": true, "_Alignof": true,
	"_Generic": true, "__attribute__": true, "asm": true, "__asm__": true,
	"void": true, "char": true, "short": true, "int": true, "long": true, "float": true,
	"double": true, "signed": true, "unsigned": true, "const": true, "volatile": true,
	"static": true, "extern": true, "inline": true, "struct": true, "union": true, "enum": true,
}

// Scope selects how guard inference relates a call to the ifs before it.
type Scope int

const (
	// ScopeNearest looks only at the nearest preceding if: its brace block
	// guards the calls inside it, and a brace-less jump on the if's line or
	// the next one negates it for the calls after it.
	ScopeNearest Scope = iota
	// ScopeBlock follows block structure: unbraced bodies, else branches and
	// braced early exits count, and ifs that do not reach the call are
	// skipped.
	ScopeBlock
)

func (s Scope) String() string {
	if s == ScopeBlock {
		return "block"
	}
	return "nearest"
}

// ParseScope accepts "nearest" (the default for an empty string) and "block".
func ParseScope(raw string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "nearest":
		return ScopeNearest, nil
	case "block", "scoped":
		return ScopeBlock, nil
	default:
		return ScopeNearest, fmt.Errorf("unsupported guard scope %q (supported: nearest, block)", raw)
	}
}

// Extract returns the deduplicated direct calls made by a function, each
// paired with its guard condition. Calls to owner itself are dropped.
// Edges keep the order of their first textual occurrence.
func Extract(source, owner string) []parser.CallEdge {
	return ExtractScoped(source, owner, ScopeNearest)
}

// ExtractScoped is Extract with an explicit guard scope.
func ExtractScoped(source, owner string, scope Scope) []parser.CallEdge {
	masked := parser.MaskNonCode(source)
	regions := parser.Regions(source)
	ifs := findIfs(source, masked, regions)

	seen := make(map[parser.CallEdge]bool)
	edges := make([]parser.CallEdge, 0)
	for _, m := range callPattern.FindAllStringSubmatchIndex(masked, -1) {
		name := masked[m[2]:m[3]]
		if !IsCallCandidate(name, owner) || isPreprocessorLine(masked, m[2]) {
			continue
		}
		condition := guardNearest(ifs, m[2])
		if scope == ScopeBlock {
			condition = guardBlock(ifs, masked, m[2])
		}
		edge := parser.CallEdge{Callee: name, Condition: condition}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		edges = append(edges, edge)
	}
	return edges
}

// Callees returns the distinct callee names of Extract in first-seen order.
func Callees(source, owner string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, edge := range Extract(source, owner) {
		if seen[edge.Callee] {
			continue
		}
		seen[edge.Callee] = true
		out = append(out, edge.Callee)
	}
	return out
}

// IsCallCandidate reports whether an identifier followed by '(' counts as a
// call: not a keyword, not an all-caps macro and not the owner itself.
func IsCallCandidate(name, owner string) bool {
	if name == "" || notCalls[name] || name == owner {
		return false
	}
	return !isMacroName(name)
}

// isMacroName mirrors the usual C convention: at least one letter and no
// lower-case letters, e.g. BUG_ON or ARRAY_SIZE.
func isMacroName(name string) bool {
	cased := false
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
