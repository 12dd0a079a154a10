package scan

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func sampleResult() *Result {
	findings := []Finding{
		{
			Kind:        KindModelUsage,
			File:        "app.py",
			Line:        3,
			Severity:    SeverityInfo,
			Description: "Model \"anthropic.claude-3-5-haiku-20241022-v1:0\" from provider anthropic.",
			Metadata:    map[string]any{"provider": "anthropic", "family": "claude"},
		},
		{
			Kind:              KindLifecycleIdleTimeout,
			File:              "deploy.py",
			Line:              7,
			Severity:          SeverityMedium,
			Description:       "idleRuntimeSessionTimeout set to 3600 seconds, above the platform default of 900.",
			CostConsideration: "Runtime hours bill while a session exists.",
		},
	}
	return &Result{
		Root:           "/proj",
		TotalFindings:  len(findings),
		FindingsByKind: summarize(findings),
		Findings:       findings,
		Meta:           Meta{FilesScanned: 2},
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextFormatter(false).Format(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{"app.py", "deploy.py", "MEDIUM", "Summary: 2 files scanned", "1 medium", "1 info"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("color disabled but output contains ANSI escapes")
	}
}

func TestTextFormatter_Color(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextFormatter(true).Format(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), colorYellow) {
		t.Error("color enabled but no ANSI escapes in output")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter().Format(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}

	var decoded Result
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.TotalFindings != 2 {
		t.Errorf("TotalFindings = %d, want 2", decoded.TotalFindings)
	}
	if decoded.Findings[1].Severity != SeverityMedium {
		t.Errorf("Severity = %s, want medium (string round-trip)", decoded.Findings[1].Severity)
	}

	// identical input marshals to identical bytes
	var second bytes.Buffer
	if err := NewJSONFormatter().Format(&second, sampleResult()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), second.Bytes()) {
		t.Error("JSON output is not byte-stable across runs")
	}
}

func TestSeverityRoundTrip(t *testing.T) {
	for _, s := range []Severity{SeverityHigh, SeverityMedium, SeverityInfo} {
		if got := ParseSeverity(s.String()); got != s {
			t.Errorf("ParseSeverity(%q) = %v, want %v", s.String(), got, s)
		}
	}
	if got := ParseSeverity("bogus"); got != 0 {
		t.Errorf("ParseSeverity(bogus) = %v, want 0", got)
	}
}
