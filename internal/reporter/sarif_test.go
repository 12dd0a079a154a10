package reporter

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ppiankov/costscan/internal/scan"
)

func testResult() *scan.Result {
	return &scan.Result{
		Root:          "/proj",
		TotalFindings: 2,
		Findings: []scan.Finding{
			{
				Kind:        scan.KindCrossRegionCaching,
				File:        "app.py",
				Line:        4,
				Severity:    scan.SeverityHigh,
				Description: "Prompt caching with globally routed model and dynamic prompt content.",
			},
			{
				Kind:              scan.KindModelUsage,
				File:              "app.py",
				Line:              2,
				Severity:          scan.SeverityInfo,
				Description:       "Model usage.",
				CostConsideration: "Model choice is the dominant per-request cost factor.",
			},
		},
	}
}

func TestWriteSARIF(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSARIF(&buf, testResult()); err != nil {
		t.Fatal(err)
	}

	var report struct {
		Schema  string `json:"$schema"`
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name  string `json:"name"`
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				Level     string `json:"level"`
				Message   struct{ Text string }
				Locations []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region struct {
							StartLine int `json:"startLine"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("invalid SARIF JSON: %v", err)
	}

	if report.Version != "2.1.0" {
		t.Errorf("version = %q, want 2.1.0", report.Version)
	}
	if len(report.Runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(report.Runs))
	}
	run := report.Runs[0]
	if run.Tool.Driver.Name != "costscan" {
		t.Errorf("driver = %q, want costscan", run.Tool.Driver.Name)
	}
	if len(run.Tool.Driver.Rules) != 2 {
		t.Errorf("rules = %d, want 2", len(run.Tool.Driver.Rules))
	}
	if len(run.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(run.Results))
	}

	first := run.Results[0]
	if first.RuleID != scan.KindCrossRegionCaching {
		t.Errorf("ruleId = %q, want %q", first.RuleID, scan.KindCrossRegionCaching)
	}
	if first.Level != "error" {
		t.Errorf("level = %q, want error (high severity)", first.Level)
	}
	loc := first.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "app.py" || loc.Region.StartLine != 4 {
		t.Errorf("location = %q:%d, want app.py:4", loc.ArtifactLocation.URI, loc.Region.StartLine)
	}

	if run.Results[1].Level != "note" {
		t.Errorf("level = %q, want note (info severity)", run.Results[1].Level)
	}
}

func TestWriteSARIF_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSARIF(&buf, &scan.Result{Root: "/proj"}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"results": null`)) &&
		!bytes.Contains(buf.Bytes(), []byte(`"results": []`)) {
		t.Errorf("empty result set missing from report:\n%s", buf.String())
	}
}
