package ignore

import "testing"

func TestMatcher_DefaultAndUserOverrides(t *testing.T) {
	m := NewMatcher([]string{
		"tools/**",
		"!tools/keep/probe.c",
		"*.tmp",
		"# comment",
	})

	cases := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{path: ".git/config", isDir: false, ignored: true},
		{path: ".canalysis/function_analysis_store.json", isDir: false, ignored: true},
		{path: "build", isDir: true, ignored: true},
		{path: "drivers/char/chardev.mod.c", isDir: false, ignored: true},
		{path: "tools/gen/a.c", isDir: false, ignored: true},
		{path: "tools/keep/probe.c", isDir: false, ignored: false},
		{path: "nested/cache.tmp", isDir: false, ignored: true},
		{path: "kernel/chardev.c", isDir: false, ignored: false},
		{path: ".", isDir: true, ignored: false},
	}

	for _, tc := range cases {
		got := m.ShouldIgnore(tc.path, tc.isDir)
		if got != tc.ignored {
			t.Fatalf("path %s: expected ignored=%v, got %v", tc.path, tc.ignored, got)
		}
	}
}

func TestMatcher_SkipDirKeepsNegatedSubtrees(t *testing.T) {
	m := NewMatcher([]string{
		"skip/*",
		"!skip/include.c",
		"tools/**",
		"!tools/keep/probe.c",
		"gen/",
	})

	cases := []struct {
		dir  string
		skip bool
	}{
		{dir: "skip", skip: false},
		{dir: "tools", skip: false},
		{dir: "tools/keep", skip: false},
		{dir: "tools/gen", skip: true},
		{dir: "gen", skip: true},
		{dir: ".git", skip: true},
		{dir: "kernel", skip: false},
	}
	for _, tc := range cases {
		if got := m.SkipDir(tc.dir); got != tc.skip {
			t.Fatalf("dir %s: expected skip=%v, got %v", tc.dir, tc.skip, got)
		}
	}

	if !m.ShouldIgnore("skip/ignored.c", false) {
		t.Fatalf("expected skip/ignored.c to be ignored")
	}
	if m.ShouldIgnore("skip/include.c", false) {
		t.Fatalf("expected skip/include.c to be re-included")
	}
}

func TestMatcher_BasenameNegationKeepsEveryDirectory(t *testing.T) {
	m := NewMatcher([]string{"legacy/", "!*.h"})
	if m.SkipDir("legacy") {
		t.Fatalf("expected legacy to be walked for re-included headers")
	}
	if !m.ShouldIgnore("legacy/old.c", false) {
		t.Fatalf("expected legacy sources to stay ignored")
	}
}

func TestMatcher_WindowsSeparators(t *testing.T) {
	m := NewMatcher([]string{"legacy/"})
	if !m.ShouldIgnore(`legacy\old.c`, false) {
		t.Fatalf("expected legacy tree to be ignored")
	}
}
