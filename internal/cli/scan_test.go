package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ppiankov/costscan/internal/config"
	"github.com/ppiankov/costscan/internal/scan"
)

func sampleResult() *scan.Result {
	return &scan.Result{
		Root:           "/proj",
		TotalFindings:  1,
		FindingsByKind: map[string]int{scan.KindModelUsage: 1},
		Findings: []scan.Finding{
			{Kind: scan.KindModelUsage, File: "app.py", Line: 3, Severity: scan.SeverityInfo, Description: "Model usage."},
		},
		Meta: scan.Meta{FilesScanned: 1},
	}
}

func TestWriteResult_ColorFlag(t *testing.T) {
	var plain bytes.Buffer
	if err := writeResult(&plain, "text", sampleResult(), false); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Error("ANSI sequences present with color disabled")
	}

	var colored bytes.Buffer
	if err := writeResult(&colored, "text", sampleResult(), true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Error("no ANSI sequences with color enabled")
	}
}

func TestRootCmd_ConfigDefault(t *testing.T) {
	flag := NewRootCmd().PersistentFlags().Lookup("config")
	if flag == nil {
		t.Fatal("config flag missing")
	}
	if flag.DefValue != config.DefaultPath() {
		t.Errorf("config default = %q, want %q", flag.DefValue, config.DefaultPath())
	}
}
