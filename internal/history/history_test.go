package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/costscan/internal/scan"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResult(root string) *scan.Result {
	findings := []scan.Finding{
		{Kind: scan.KindModelUsage, File: "a.py", Line: 1, Severity: scan.SeverityInfo, Description: "model"},
		{Kind: scan.KindLifecycleMissing, File: "b.py", Line: 2, Severity: scan.SeverityMedium, Description: "missing"},
	}
	return &scan.Result{
		Root:           root,
		TotalFindings:  len(findings),
		FindingsByKind: map[string]int{scan.KindModelUsage: 1, scan.KindLifecycleMissing: 1},
		Findings:       findings,
		Meta:           scan.Meta{FilesScanned: 2},
	}
}

func TestStore_RecordAndLast(t *testing.T) {
	store := openStore(t)

	id, err := store.Record(time.Now(), sampleResult("/proj"))
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Error("id = 0, want nonzero")
	}

	last, err := store.Last()
	if err != nil {
		t.Fatal(err)
	}
	if last.Root != "/proj" {
		t.Errorf("Root = %q, want /proj", last.Root)
	}
	if last.TotalFindings != 2 {
		t.Errorf("TotalFindings = %d, want 2", last.TotalFindings)
	}
	if last.Findings[1].Severity != scan.SeverityMedium {
		t.Errorf("Severity = %v, want medium", last.Findings[1].Severity)
	}
}

func TestStore_Recent(t *testing.T) {
	store := openStore(t)

	for _, root := range []string{"/one", "/two", "/three"} {
		if _, err := store.Record(time.Now(), sampleResult(root)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	// newest first
	if runs[0].Root != "/three" || runs[1].Root != "/two" {
		t.Errorf("order = %q, %q, want /three, /two", runs[0].Root, runs[1].Root)
	}
	if runs[0].Medium != 1 || runs[0].Info != 1 {
		t.Errorf("counts = high %d medium %d info %d, want 0/1/1",
			runs[0].High, runs[0].Medium, runs[0].Info)
	}
}

func TestStore_Empty(t *testing.T) {
	store := openStore(t)

	if _, err := store.Last(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Last error = %v, want ErrEmpty", err)
	}
	runs, err := store.Recent(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("len(runs) = %d, want 0", len(runs))
	}
}
