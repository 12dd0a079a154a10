package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

const pyInvocation = `import boto3

client = boto3.client("bedrock-runtime")

def ask(question):
    return client.invoke_model(
        modelId="anthropic.claude-3-5-haiku-20241022-v1:0",
        body=question,
    )
`

const goLoopInvocation = `package main

func process(client *Client, items []string) {
	for _, item := range items {
		client.InvokeModel(buildRequest(item))
	}
}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestScan_Basic(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app/ask.py":  pyInvocation,
		"app/loop.go": goLoopInvocation,
	})

	result, err := Scan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if result.Meta.FilesScanned != 2 {
		t.Fatalf("FilesScanned = %d, want 2", result.Meta.FilesScanned)
	}
	if result.TotalFindings == 0 {
		t.Fatal("expected findings")
	}
	if result.TotalFindings != len(result.Findings) {
		t.Errorf("TotalFindings = %d, len(Findings) = %d", result.TotalFindings, len(result.Findings))
	}

	wantKinds := []string{KindModelUsage, KindInvocationPattern, KindInvocationInLoop}
	for _, kind := range wantKinds {
		if result.FindingsByKind[kind] == 0 {
			t.Errorf("no %s findings; got %v", kind, result.FindingsByKind)
		}
	}

	// paths are root-relative with forward slashes
	for _, f := range result.Findings {
		if filepath.IsAbs(f.File) {
			t.Errorf("finding path %q is absolute", f.File)
		}
	}
}

func TestScan_Deterministic(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py":       pyInvocation,
		"b.go":       goLoopInvocation,
		"sub/c.py":   pyInvocation,
		"sub/d.yaml": `model: "amazon.nova-pro-v1:0"` + "\n",
	})

	run := func(workers int) []byte {
		result, err := Scan(context.Background(), root, Options{Workers: workers})
		if err != nil {
			t.Fatal(err)
		}
		data, err := json.Marshal(result)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	first := run(1)
	for _, workers := range []int{1, 4, 8} {
		if got := run(workers); !bytes.Equal(first, got) {
			t.Fatalf("output with %d workers differs from single-worker output", workers)
		}
	}
}

func TestScan_FindingOrder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"z.py": pyInvocation,
		"a.py": pyInvocation,
	})

	result, err := Scan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}

	ordered := sort.SliceIsSorted(result.Findings, func(i, j int) bool {
		a, b := result.Findings[i], result.Findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Kind < b.Kind
	})
	if !ordered {
		t.Error("findings are not sorted by file, line, kind")
	}
}

func TestScan_SkipDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py":               pyInvocation,
		"node_modules/dep.py":  pyInvocation,
		"vendor/lib.go":        goLoopInvocation,
		".hidden/secret.py":    pyInvocation,
		"custom_skip/extra.py": pyInvocation,
	})

	result, err := Scan(context.Background(), root, Options{SkipDirs: []string{"custom_skip"}})
	if err != nil {
		t.Fatal(err)
	}

	if result.Meta.FilesScanned != 1 {
		t.Fatalf("FilesScanned = %d, want 1", result.Meta.FilesScanned)
	}
	for _, f := range result.Findings {
		if f.File != "app.py" {
			t.Errorf("finding from skipped path %q", f.File)
		}
	}
}

func TestScan_MaxFilesTruncates(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": pyInvocation,
		"b.py": pyInvocation,
		"c.py": pyInvocation,
	})

	result, err := Scan(context.Background(), root, Options{MaxFiles: 2})
	if err != nil {
		t.Fatal(err)
	}
	if result.Meta.FilesScanned != 2 {
		t.Errorf("FilesScanned = %d, want 2", result.Meta.FilesScanned)
	}
	if !result.Meta.Truncated {
		t.Error("Truncated = false, want true")
	}
}

func TestScan_TestFilesIgnored(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app_test.go":  goLoopInvocation,
		"test_app.py":  pyInvocation,
		"real_code.py": pyInvocation,
	})

	result, err := Scan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Meta.FilesScanned != 1 {
		t.Fatalf("FilesScanned = %d, want 1", result.Meta.FilesScanned)
	}
}

func TestScan_InvalidRoot(t *testing.T) {
	if _, err := Scan(context.Background(), "/does/not/exist", Options{}); err == nil {
		t.Fatal("expected error for missing root")
	}

	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Scan(context.Background(), file, Options{}); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestScan_Estimate(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py":                pyInvocation,
		"b.go":                goLoopInvocation,
		"node_modules/dep.py": pyInvocation,
	})

	result, err := Scan(context.Background(), root, Options{Estimate: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.Estimate == nil {
		t.Fatal("Estimate = nil")
	}
	if result.Estimate.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", result.Estimate.FileCount)
	}
	if result.Estimate.TotalBytes != int64(len(pyInvocation)+len(goLoopInvocation)) {
		t.Errorf("TotalBytes = %d, want %d", result.Estimate.TotalBytes,
			len(pyInvocation)+len(goLoopInvocation))
	}
	if result.Estimate.PrunedDirs == 0 {
		t.Error("PrunedDirs = 0, want node_modules pruned")
	}
	if len(result.Findings) != 0 {
		t.Errorf("estimate produced %d findings, want 0", len(result.Findings))
	}
}

func TestScan_RemembersLastResult(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": pyInvocation})

	result, err := Scan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}

	last, ok := LastResult()
	if !ok {
		t.Fatal("LastResult returned no result after scan")
	}
	if last.Root != result.Root || last.TotalFindings != result.TotalFindings {
		t.Errorf("LastResult differs from scan: %+v vs %+v", last, result)
	}
}

func TestAnalyzeFile(t *testing.T) {
	root := writeTree(t, map[string]string{"ask.py": pyInvocation})

	result, err := AnalyzeFile(filepath.Join(root, "ask.py"))
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalFindings == 0 {
		t.Fatal("expected findings")
	}
	if result.TotalFindings != len(result.Findings) {
		t.Errorf("TotalFindings = %d, len(Findings) = %d", result.TotalFindings, len(result.Findings))
	}
	if result.Meta.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", result.Meta.FilesScanned)
	}
	if result.FindingsByKind[KindModelUsage] == 0 {
		t.Error("no model-usage finding for single file")
	}

	if _, err := AnalyzeFile(filepath.Join(root, "missing.py")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := AnalyzeFile(root); err == nil {
		t.Error("expected error for directory")
	}
}

func TestScan_CancelledContext(t *testing.T) {
	seedRoot := writeTree(t, map[string]string{"seed.py": pyInvocation})
	if _, err := Scan(context.Background(), seedRoot, Options{}); err != nil {
		t.Fatal(err)
	}

	root := writeTree(t, map[string]string{"a.py": pyInvocation, "b.py": pyInvocation})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Scan(ctx, root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Meta.Truncated {
		t.Error("cancelled scan not marked truncated")
	}

	last, ok := LastResult()
	if !ok {
		t.Fatal("LastResult returned no result")
	}
	if last.Root != seedRoot {
		t.Errorf("cached root = %q, want %q (incomplete result must not be cached)", last.Root, seedRoot)
	}
}

func TestScan_TwoFileProject(t *testing.T) {
	header := `You are a support agent. Answer using only the product manual excerpts provided below. Cite section numbers. Never speculate about undocumented features. Keep answers under two hundred words. Always respond in the same language as the question.`
	builder := `package main

import "fmt"

func buildPrompt(q string) string {
	return fmt.Sprintf("` + header + ` Question: %s", q)
}

func main() {
	for _, q := range queries() {
		_ = buildPrompt(q)
	}
}
`
	cached := `model_id = "global.anthropic.claude-sonnet-4-20250514-v1:0"
body = {"cache_control": {"type": "ephemeral"}}
`
	root := writeTree(t, map[string]string{
		"prompt.go": builder,
		"cached.py": cached,
	})

	result, err := Scan(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if n := result.FindingsByKind[KindRecurringPrompt]; n != 1 {
		t.Errorf("recurring-prompt = %d, want 1", n)
	}
	if n := result.FindingsByKind[KindModelUsage]; n != 1 {
		t.Errorf("model-usage = %d, want 1", n)
	}

	var cross []Finding
	for _, f := range result.Findings {
		if f.Kind == KindCrossRegionCaching {
			cross = append(cross, f)
		}
	}
	if len(cross) != 1 {
		t.Fatalf("cross-region-caching = %d, want 1", len(cross))
	}
	if cross[0].Severity != SeverityHigh {
		t.Errorf("severity = %s, want high", cross[0].Severity)
	}
	if cross[0].File != "cached.py" {
		t.Errorf("file = %q, want cached.py", cross[0].File)
	}
}
