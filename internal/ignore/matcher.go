package ignore

import (
	"path"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName is the per-tree ignore file read next to the analyzed sources.
const FileName = ".canalysisignore"

// DefaultRules are always applied before user rules, so a user negation can
// re-include one of them.
var DefaultRules = []string{
	".git/",
	".canalysis/",
	"node_modules/",
	"vendor/",
	"build/",
	"out/",
	"*.mod.c",
}

// Matcher applies gitignore rules with "last rule wins" behavior.
type Matcher struct {
	gi        *gitignore.GitIgnore
	negations []string
}

// NewMatcher builds a matcher from user-provided .canalysisignore lines.
func NewMatcher(userRules []string) *Matcher {
	all := make([]string, 0, len(DefaultRules)+len(userRules))
	all = append(all, DefaultRules...)
	for _, line := range userRules {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		all = append(all, line)
	}
	m := &Matcher{gi: gitignore.CompileIgnoreLines(all...)}
	for _, line := range all {
		if negated, ok := strings.CutPrefix(line, "!"); ok {
			m.negations = append(m.negations, strings.Trim(negated, "/"))
		}
	}
	return m
}

// ShouldIgnore returns true when relPath should be excluded.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = normalizePath(relPath)
	if relPath == "" || relPath == "." {
		return false
	}
	if isDir {
		relPath += "/"
	}
	return m.gi.MatchesPath(relPath)
}

// SkipDir reports whether a walk can prune relDir: the directory is ignored
// and no negation rule could re-include anything beneath it. Directories
// that are ignored but not prunable are walked and filtered per file.
func (m *Matcher) SkipDir(relDir string) bool {
	if !m.ShouldIgnore(relDir, true) {
		return false
	}
	dir := strings.Split(strings.TrimSuffix(normalizePath(relDir), "/"), "/")
	for _, negated := range m.negations {
		if mayMatchBeneath(strings.Split(negated, "/"), dir) {
			return false
		}
	}
	return true
}

// mayMatchBeneath reports whether a slash-separated pattern could match a
// path under dir. Single-segment patterns match at any depth.
func mayMatchBeneath(pattern, dir []string) bool {
	if len(pattern) == 1 {
		return true
	}
	for i, seg := range dir {
		if i >= len(pattern) || pattern[i] == "**" {
			return true
		}
		if ok, err := path.Match(pattern[i], seg); err != nil || !ok {
			return false
		}
	}
	return true
}

func normalizePath(path string) string {
	path = strings.ReplaceAll(filepath.ToSlash(path), "\\", "/")
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
