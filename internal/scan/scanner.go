package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/costscan/internal/structural"
	"github.com/ppiankov/costscan/internal/textual"
)

// Options configure a scan run.
type Options struct {
	SkipDirs []string
	MaxFiles int
	Workers  int // bounded analysis concurrency, default 4
	Estimate bool
}

const defaultWorkers = 4

// Scan analyzes every discovered file under root and returns the
// aggregated result. The only hard error is an invalid root or a walk
// failure; per-file problems are recorded in Meta and never abort the
// run. Output ordering is deterministic regardless of worker count.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	if opts.Estimate {
		est, err := EstimateScan(root, DiscoverOptions{SkipDirs: opts.SkipDirs, MaxFiles: opts.MaxFiles})
		if err != nil {
			return nil, err
		}
		return &Result{Root: root, FindingsByKind: map[string]int{}, Estimate: est}, nil
	}

	d, err := Discover(root, DiscoverOptions{SkipDirs: opts.SkipDirs, MaxFiles: opts.MaxFiles})
	if err != nil {
		return nil, err
	}

	detectors := AllDetectors()
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var (
		mu       sync.Mutex
		findings []Finding
		skipped  []string
		wg       sync.WaitGroup
	)
	guard := make(chan struct{}, workers)

	scheduled := 0
	for _, path := range d.Files {
		if ctx.Err() != nil {
			break
		}
		scheduled++
		wg.Add(1)
		guard <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-guard }()
			fs, err := analyzePath(root, path, detectors)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				skipped = append(skipped, relPath(root, path))
				return
			}
			findings = append(findings, fs...)
		}(path)
	}
	wg.Wait()

	// A cancelled context leaves part of the tree unanalyzed; the result
	// must say so, and an incomplete result never replaces the cached one.
	cancelled := ctx.Err() != nil

	findings = dedupe(findings)
	sortFindings(findings)
	sort.Strings(skipped)

	res := &Result{
		Root:           root,
		TotalFindings:  len(findings),
		FindingsByKind: summarize(findings),
		Findings:       findings,
		Meta: Meta{
			FilesScanned: scheduled - len(skipped),
			FilesSkipped: len(skipped),
			Skipped:      skipped,
			Truncated:    d.Truncated || cancelled,
		},
	}
	if !cancelled {
		Remember(res)
	}
	return res, nil
}

// AnalyzeFile runs the full detector set against a single file and
// returns a one-file result with the same shape a full scan produces.
func AnalyzeFile(path string) (*Result, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("analyze %s: is a directory", path)
	}
	findings, err := analyzePath(filepath.Dir(path), path, AllDetectors())
	if err != nil {
		return nil, err
	}
	findings = dedupe(findings)
	sortFindings(findings)
	return &Result{
		Root:           filepath.Dir(path),
		TotalFindings:  len(findings),
		FindingsByKind: summarize(findings),
		Findings:       findings,
		Meta:           Meta{FilesScanned: 1},
	}, nil
}

func analyzePath(root, path string, detectors []Detector) ([]Finding, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src := buildSource(relPath(root, path), string(content))
	var findings []Finding
	for _, det := range detectors {
		if !det.Applies(src.Path) {
			continue
		}
		findings = append(findings, det.Analyze(src)...)
	}
	findings = append(findings, correlate(src, findings)...)
	return findings, nil
}

// buildSource runs both analyzers over the raw content. ScanAll already
// drops matches inside comments and validation strings, so detectors only
// ever see live occurrences. A Go parse failure leaves Tree nil and the
// detectors degrade to textual evidence.
func buildSource(path, content string) *Source {
	src := &Source{Path: path, Content: content}
	src.Text = textual.ScanAll(content)
	src.Repeats = textual.RepeatedLiterals(content)
	if strings.HasSuffix(path, ".go") {
		if tree, err := structural.Parse(content); err == nil {
			src.Tree = tree
		}
	}
	return src
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		return findings[i].Kind < findings[j].Kind
	})
}
