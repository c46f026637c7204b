package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Zhao-zixi/Canalysis/internal/cli"
	"github.com/Zhao-zixi/Canalysis/internal/graph"
	"github.com/Zhao-zixi/Canalysis/internal/output"
)

func TestAnalyzeFixtureTree(t *testing.T) {
	root := t.TempDir()
	copyTree(t, filepath.Join("..", "..", "fixtures", "c"), root)

	cmd := cli.NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"analyze", root, "--mode", "fallback", "--quiet"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	g, err := graph.ReadFile(filepath.Join(root, output.ContextDir, output.GraphFile))
	if err != nil {
		t.Fatalf("failed to read graph: %v", err)
	}

	assertEdge(t, g, "user/app.c", "main", "ring_connect", "unconditional", graph.Heuristic)
	assertEdge(t, g, "user/app.c", "main", "send_all", "fd >= 0", graph.Resolved)
	assertEdge(t, g, "kernel/ringdev.c", "ring_open", "pr_info", "try_module_get(THIS_MODULE)", graph.External)
	assertEdge(t, g, "kernel/ringdev.c", "ring_init", "pr_err", "major < 0", graph.External)
	assertEdge(t, g, "kernel/ringdev.c", "ring_init", "pr_info", "unconditional", graph.External)
	assertEdge(t, g, "kernel/ringdev.c", "ring_write", "pr_warn", "len > RING_SIZE", graph.External)
	assertEdge(t, g, "kernel/ringdev.c", "ring_write", "copy_from_user", "unconditional", graph.External)
}

func assertEdge(t *testing.T, g *graph.Graph, file, caller, callee, condition, confidence string) {
	t.Helper()
	for _, id := range g.FileNodes[file] {
		if g.Nodes[id].Name != caller {
			continue
		}
		for _, edge := range g.EdgesFrom(id) {
			if edge.CalleeName != callee {
				continue
			}
			if edge.Condition != condition || edge.Confidence != confidence {
				t.Fatalf("edge %s -> %s: expected (%s, %s), got (%s, %s)",
					caller, callee, condition, confidence, edge.Condition, edge.Confidence)
			}
			return
		}
	}
	t.Fatalf("expected edge %s:%s -> %s", file, caller, callee)
}

func copyTree(t *testing.T, src, dst string) {
	t.Helper()
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		t.Fatalf("failed to copy fixtures: %v", err)
	}
}
