package bench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/graph"
	"github.com/Zhao-zixi/Canalysis/internal/languages"
	"github.com/Zhao-zixi/Canalysis/internal/logging"
)

func BenchmarkParseAndGraph_MediumRepo(b *testing.B) {
	root := b.TempDir()
	createSyntheticCRepo(b, root, 250)

	registry := languages.NewDefaultRegistry()
	orch := analysis.NewOrchestrator(analysis.Options{
		Mode:   analysis.ModeFallback,
		Logger: logging.Discard(),
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := registry.ParseDirectory(root, nil)
		if err != nil {
			b.Fatalf("parse failed: %v", err)
		}
		results := orch.Analyze(context.Background(), result.Records())
		g := graph.Build(results)
		if len(g.Nodes) == 0 {
			b.Fatalf("expected graph nodes")
		}
	}
}

func BenchmarkOrchestrator_Concurrency(b *testing.B) {
	root := b.TempDir()
	createSyntheticCRepo(b, root, 100)
	result, err := languages.NewDefaultRegistry().ParseDirectory(root, nil)
	if err != nil {
		b.Fatalf("parse failed: %v", err)
	}
	records := result.Records()

	stub := analysis.SummarizerFunc(func(_ context.Context, req analysis.Request) (analysis.Response, error) {
		return analysis.StaticAnalyze(req.Record()), nil
	})

	for _, c := range []int{1, 8} {
		b.Run(fmt.Sprintf("c=%d", c), func(b *testing.B) {
			orch := analysis.NewOrchestrator(analysis.Options{
				Summarizer:  stub,
				Mode:        analysis.ModeAsync,
				Concurrency: c,
				Logger:      logging.Discard(),
			})
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if got := orch.Analyze(context.Background(), records); len(got) != len(records) {
					b.Fatalf("expected %d results, got %d", len(records), len(got))
				}
			}
		})
	}
}

func createSyntheticCRepo(tb testing.TB, root string, files int) {
	tb.Helper()

	for i := 0; i < files; i++ {
		side := "user"
		if i%2 == 0 {
			side = "kernel"
		}
		dir := filepath.Join(root, side, fmt.Sprintf("mod%d", i%10))
		if err := os.MkdirAll(dir, 0755); err != nil {
			tb.Fatalf("mkdir failed: %v", err)
		}

		filePath := filepath.Join(dir, fmt.Sprintf("file_%03d.c", i))
		src := fmt.Sprintf(`/* generated */
static int helper%d(int x)
{
	return x * %d;
}

int entry%d(int x)
{
	if (x < 0)
		return -1;
	if (x > 100) {
		log_big(x);
	}
	return helper%d(x);
}
`, i, i, i, i)

		if err := os.WriteFile(filePath, []byte(src), 0644); err != nil {
			tb.Fatalf("write failed: %v", err)
		}
	}
}
