package parser

import (
	"path"
	"regexp"
)

var includePattern = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[ \t]*"([^"\n]+)"`)

// QuotedIncludes returns the targets of #include "..." directives in
// order of appearance. Directives inside comments are ignored.
func QuotedIncludes(text string) []string {
	masked := MaskNonCode(text)
	var out []string
	seen := make(map[string]bool)
	for _, m := range includePattern.FindAllStringSubmatchIndex(text, -1) {
		// the directive up to the opening quote must be code
		if masked[m[0]:m[2]-1] != text[m[0]:m[2]-1] {
			continue
		}
		target := text[m[2]:m[3]]
		if !seen[target] {
			seen[target] = true
			out = append(out, target)
		}
	}
	return out
}

// ResolveInclude maps a quoted include in file to a slash path relative to
// the same root.
func ResolveInclude(file, target string) string {
	return path.Clean(path.Join(path.Dir(file), target))
}
