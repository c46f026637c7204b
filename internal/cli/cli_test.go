package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/cache"
	"github.com/Zhao-zixi/Canalysis/internal/output"
	"github.com/Zhao-zixi/Canalysis/internal/state"
)

const kernelSource = `#include "../common/proto.h"

static int dev_open(int minor)
{
	if (minor < 0)
		return -1;
	copy_to_user(0, 0, 0);
	return 0;
}

int dev_init(void)
{
	if (register_dev() != 0)
		return -1;
	return dev_open(0);
}
`

const userSource = `#include "../common/proto.h"

int main(void)
{
	int fd = open("/dev/x", 0);
	if (fd < 0) {
		report(fd);
	}
	close(fd);
	return 0;
}
`

func writeSampleTree(t *testing.T, root string) {
	t.Helper()
	mustWriteFile(t, filepath.Join(root, "common", "proto.h"), "#define PROTO 1\n")
	mustWriteFile(t, filepath.Join(root, "kernel", "dev.c"), kernelSource)
	mustWriteFile(t, filepath.Join(root, "user", "app.c"), userSource)
}

func TestInitAnalyzeStatusFlow(t *testing.T) {
	root := t.TempDir()
	writeSampleTree(t, root)

	if _, err := runCLI(t, "init", "--root", root); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	contextDir := filepath.Join(root, output.ContextDir)
	assertExists(t, filepath.Join(contextDir, output.ConfigFile))

	first := analyzeJSON(t, root, "--provider", "fake")
	if first.Functions != 3 || first.Analyzed != 3 || first.CacheWrites != 3 {
		t.Fatalf("unexpected first run summary: %+v", first)
	}
	if first.RunID == "" {
		t.Fatalf("expected run id in summary")
	}
	assertExists(t, filepath.Join(contextDir, output.AnalysisFile))
	assertExists(t, filepath.Join(contextDir, output.GraphFile))
	assertExists(t, filepath.Join(contextDir, cache.DefaultFile))
	assertExists(t, filepath.Join(contextDir, state.StateFile))

	firstGraph, err := os.ReadFile(filepath.Join(contextDir, output.GraphFile))
	if err != nil {
		t.Fatalf("failed to read graph: %v", err)
	}

	second := analyzeJSON(t, root, "--provider", "fake")
	if second.CacheHits != 3 || second.Analyzed != 0 || second.CacheWrites != 0 {
		t.Fatalf("expected second run to be served from cache, got %+v", second)
	}
	secondGraph, err := os.ReadFile(filepath.Join(contextDir, output.GraphFile))
	if err != nil {
		t.Fatalf("failed to read graph: %v", err)
	}
	if !bytes.Equal(firstGraph, secondGraph) {
		t.Fatalf("expected deterministic graph output between runs")
	}

	// same line count, so only main's content changes
	mustWriteFile(t, filepath.Join(root, "user", "app.c"), strings.Replace(userSource, "report(fd);", "report(-fd);", 1))

	out, err := runCLI(t, "status", "--root", root, "--json")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var status StatusSummary
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("invalid status json: %v\n%s", err, out)
	}
	if status.Changed != 1 || status.ChangedFiles[0] != "user/app.c" || status.StaleFuncs != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.LastRunID != second.RunID {
		t.Fatalf("expected last run %s, got %s", second.RunID, status.LastRunID)
	}

	third := analyzeJSON(t, root, "--provider", "fake")
	if third.CacheHits != 2 || third.Analyzed != 1 {
		t.Fatalf("expected only main to be re-analyzed, got %+v", third)
	}
}

func TestStatusReportsHeaderImpact(t *testing.T) {
	root := t.TempDir()
	writeSampleTree(t, root)
	analyzeJSON(t, root, "--mode", "fallback")

	mustWriteFile(t, filepath.Join(root, "common", "proto.h"), "#define PROTO 2\n")
	out, err := runCLI(t, "status", "--root", root, "--json")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var status StatusSummary
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("invalid status json: %v", err)
	}
	want := []string{"common/proto.h", "kernel/dev.c", "user/app.c"}
	if strings.Join(status.ImpactedFiles, ",") != strings.Join(want, ",") {
		t.Fatalf("expected impacted %v, got %v", want, status.ImpactedFiles)
	}
}

func TestAnalyzeFallbackModeWritesNoCache(t *testing.T) {
	root := t.TempDir()
	writeSampleTree(t, root)

	summary := analyzeJSON(t, root, "--mode", "fallback")
	if summary.Fallbacks != 3 || summary.CacheWrites != 0 || len(summary.Failures) != 0 {
		t.Fatalf("unexpected fallback summary: %+v", summary)
	}
	assertNotExists(t, filepath.Join(root, output.ContextDir, cache.DefaultFile))

	results := loadResults(t, root)
	for _, r := range results {
		if !strings.Contains(r.Notes, analysis.FallbackNote) {
			t.Fatalf("expected fallback note on %s, got %q", r.Name, r.Notes)
		}
	}
}

func TestAnalyzeRecoversFromCorruptSQLiteCache(t *testing.T) {
	root := t.TempDir()
	writeSampleTree(t, root)
	dbPath := filepath.Join(root, output.ContextDir, cache.DefaultDatabase)
	mustWriteFile(t, dbPath, strings.Repeat("not a database ", 100))

	first := analyzeJSON(t, root, "--provider", "fake", "--cache", "sqlite")
	if first.Analyzed != 3 || first.CacheWrites != 3 {
		t.Fatalf("expected a full run despite the corrupt cache, got %+v", first)
	}
	assertExists(t, dbPath+".corrupt")

	second := analyzeJSON(t, root, "--provider", "fake", "--cache", "sqlite")
	if second.CacheHits != 3 || second.Analyzed != 0 {
		t.Fatalf("expected the rebuilt cache to serve the second run, got %+v", second)
	}
}

func TestAnalyzeInfersNegatedEarlyReturn(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "foo.c"), "int foo(int x) { if (x == 0) return -1; bar(); return 0; }\n")

	analyzeJSON(t, root, "--mode", "fallback")
	results := loadResults(t, root)
	if len(results) != 1 || results[0].Name != "foo" {
		t.Fatalf("expected one result for foo, got %+v", results)
	}
	calls := results[0].Calls
	if len(calls) != 1 || calls[0].Callee != "bar" || calls[0].Condition != "x != 0" {
		t.Fatalf("expected bar guarded by x != 0, got %+v", calls)
	}
}

func TestAnalyzeOnlySelectorSkipsManifest(t *testing.T) {
	root := t.TempDir()
	writeSampleTree(t, root)

	summary := analyzeJSON(t, root, "--mode", "fallback", "--only", "kernel/dev.c")
	if summary.Functions != 2 {
		t.Fatalf("expected 2 selected functions, got %+v", summary)
	}
	assertNotExists(t, filepath.Join(root, output.ContextDir, state.StateFile))

	if _, err := runCLI(t, "analyze", root, "--mode", "fallback", "--only", "nothing_here"); err == nil {
		t.Fatalf("expected error for selector without matches")
	}
}

func TestAnalyzeWritesJSONL(t *testing.T) {
	root := t.TempDir()
	writeSampleTree(t, root)

	summary := analyzeJSON(t, root, "--mode", "fallback", "--format", "jsonl")
	if !strings.HasSuffix(summary.Output, output.AnalysisJSONLFile) {
		t.Fatalf("expected jsonl output path, got %s", summary.Output)
	}
	if got := len(loadResults(t, root)); got != 3 {
		t.Fatalf("expected 3 results from jsonl, got %d", got)
	}
}

func TestNavigationCommandsJSON(t *testing.T) {
	root := t.TempDir()
	writeSampleTree(t, root)
	analyzeJSON(t, root, "--mode", "fallback")

	out, err := runCLI(t, "callers", "dev_open", "--root", root, "--json")
	if err != nil {
		t.Fatalf("callers failed: %v", err)
	}
	var callers struct {
		Callers []struct {
			Function  struct{ Name string } `json:"function"`
			Condition string                `json:"condition"`
		} `json:"callers"`
	}
	if err := json.Unmarshal([]byte(out), &callers); err != nil {
		t.Fatalf("invalid callers json: %v\n%s", err, out)
	}
	if len(callers.Callers) != 1 || callers.Callers[0].Function.Name != "dev_init" {
		t.Fatalf("expected dev_init as caller, got %s", out)
	}
	if callers.Callers[0].Condition != "register_dev() == 0" {
		t.Fatalf("expected negated early-return guard, got %q", callers.Callers[0].Condition)
	}

	out, err = runCLI(t, "callees", "main", "--root", root)
	if err != nil {
		t.Fatalf("callees failed: %v", err)
	}
	if !strings.Contains(out, "report [external] when fd < 0") {
		t.Fatalf("expected guarded external callee, got:\n%s", out)
	}

	out, err = runCLI(t, "path", "dev_init", "copy_to_user", "--root", root, "--json")
	if err != nil {
		t.Fatalf("path failed: %v", err)
	}
	var path struct {
		Length int `json:"length"`
	}
	if err := json.Unmarshal([]byte(out), &path); err != nil {
		t.Fatalf("invalid path json: %v", err)
	}
	if path.Length != 2 {
		t.Fatalf("expected path of length 2, got %s", out)
	}

	out, err = runCLI(t, "trace", "dev_init", "--root", root, "--depth", "1")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if !strings.Contains(out, "trace from kernel/dev.c:dev_init:") {
		t.Fatalf("unexpected trace output:\n%s", out)
	}

	out, err = runCLI(t, "show", "kernel/dev.c:dev_open", "--root", root)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "summary: reads data") {
		t.Fatalf("expected static summary in show output:\n%s", out)
	}
}

func TestSearchRanksByName(t *testing.T) {
	root := t.TempDir()
	writeSampleTree(t, root)
	analyzeJSON(t, root, "--mode", "fallback")

	out, err := runCLI(t, "search", "dev", "open", "--root", root, "--json")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	var payload struct {
		Matches []searchMatch `json:"matches"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid search json: %v", err)
	}
	if len(payload.Matches) == 0 || payload.Matches[0].Name != "dev_open" {
		t.Fatalf("expected dev_open first, got %s", out)
	}
}

func TestDoctorReportsMissingManifestAndAudit(t *testing.T) {
	root := t.TempDir()
	writeSampleTree(t, root)

	out, err := runCLI(t, "doctor", "--root", root, "--json", "--audit")
	if err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	var summary DoctorSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid doctor json: %v", err)
	}
	if summary.Healthy {
		t.Fatalf("expected unhealthy doctor before analyze: %+v", summary)
	}
	if !containsString(summary.Missing, state.StateFile) {
		t.Fatalf("expected missing manifest, got %v", summary.Missing)
	}
	for _, audit := range summary.Audit {
		if audit.File == "kernel/dev.c" && audit.Matched != 2 {
			t.Fatalf("expected both kernel functions matched, got %+v", audit)
		}
	}

	analyzeJSON(t, root, "--mode", "fallback")
	out, err = runCLI(t, "doctor", "--root", root, "--json")
	if err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	summary = DoctorSummary{}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid doctor json: %v", err)
	}
	if !summary.Clean || summary.Changed != 0 {
		t.Fatalf("expected clean sources after analyze: %+v", summary)
	}
}

func TestDoctorFlagsEditedOutputs(t *testing.T) {
	root := t.TempDir()
	writeSampleTree(t, root)
	analyzeJSON(t, root, "--mode", "fallback")

	graphPath := filepath.Join(root, output.ContextDir, output.GraphFile)
	mustWriteFile(t, graphPath, "{}\n")

	out, err := runCLI(t, "doctor", "--root", root, "--json")
	if err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	var summary DoctorSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid doctor json: %v", err)
	}
	if summary.Healthy {
		t.Fatalf("expected unhealthy doctor after editing outputs: %+v", summary)
	}
	if !containsString(summary.Missing, "unmodified outputs ("+output.GraphFile+")") {
		t.Fatalf("expected edited graph to be reported, got %v", summary.Missing)
	}
	if !containsString(summary.Extensions, ".c") || !containsString(summary.Extensions, ".h") {
		t.Fatalf("expected C extensions, got %v", summary.Extensions)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "canalysis test\n" {
		t.Fatalf("unexpected version output %q", out)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func analyzeJSON(t *testing.T, root string, extra ...string) RunSummary {
	t.Helper()
	args := append([]string{"analyze", root, "--json", "--quiet"}, extra...)
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	var summary RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid run summary: %v\n%s", err, out)
	}
	return summary
}

func loadResults(t *testing.T, root string) []analysis.AnalysisResult {
	t.Helper()
	path, err := output.FindAnalysis(root)
	if err != nil {
		t.Fatalf("find analysis: %v", err)
	}
	results, err := output.LoadAnalysis(path)
	if err != nil {
		t.Fatalf("load analysis: %v", err)
	}
	return results
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("expected %s to not exist", path)
	} else if !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent: %v", path, err)
	}
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
