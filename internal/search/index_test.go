package search

import (
	"testing"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

func TestSearchRanksFunctionNameMatches(t *testing.T) {
	index := Build([]analysis.AnalysisResult{
		{File: "kernel/chardev.c", Name: "dev_read", Line: 40, Summary: "reads data for user space",
			Calls: []parser.CallEdge{{Callee: "copy_to_user", Condition: "len != 0"}}},
		{File: "kernel/chardev.c", Name: "dev_write", Line: 60, Summary: "writes data",
			Calls: []parser.CallEdge{{Callee: "copy_from_user", Condition: "unconditional"}}},
		{File: "user/app.c", Name: "main", Line: 5, Summary: "opens the device and reads"},
	})

	results := Search(index, "dev read", 5)
	if len(results) == 0 {
		t.Fatalf("expected results for split snake_case query")
	}
	if results[0].ID != "kernel/chardev.c:dev_read:40" {
		t.Fatalf("expected dev_read to rank first, got %#v", results)
	}

	results = Search(index, "copy_from_user", 5)
	if len(results) == 0 || results[0].ID != "kernel/chardev.c:dev_write:60" {
		t.Fatalf("expected callee match to find dev_write, got %#v", results)
	}

	doc, ok := index.Get("user/app.c:main:5")
	if !ok || doc.Name != "main" {
		t.Fatalf("expected Get to find main, got %+v", doc)
	}
}

func TestSearchTypoFallback(t *testing.T) {
	index := &Index{
		Version:       Version,
		DocumentCount: 1,
		AvgDocLength:  1,
		DocFreq:       map[string]int{},
		Documents: []Document{
			{ID: "id-1", Name: "serial_open", Length: 1, Terms: map[string]int{"serial_open": 1}},
		},
	}

	results := Search(index, "serail_open", 3)
	if len(results) == 0 {
		t.Fatalf("expected typo fallback results")
	}
	if results[0].ID != "id-1" {
		t.Fatalf("expected typo fallback to pick serial_open, got %#v", results)
	}
}

func TestSearchDeterministicOrdering(t *testing.T) {
	index := &Index{
		Version:       Version,
		DocumentCount: 2,
		AvgDocLength:  1,
		DocFreq:       map[string]int{"alpha": 2},
		Documents: []Document{
			{ID: "b", Length: 1, Terms: map[string]int{"alpha": 1}},
			{ID: "a", Length: 1, Terms: map[string]int{"alpha": 1}},
		},
	}

	results := Search(index, "alpha", 2)
	if len(results) != 2 {
		t.Fatalf("expected two results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Fatalf("expected stable tie-break by id, got %#v", results)
	}
}
