package scan

import (
	"github.com/ppiankov/costscan/internal/structural"
	"github.com/ppiankov/costscan/internal/textual"
)

// Source is the pre-analyzed view of one file handed to every detector.
// The scanner builds it once per file; detectors only read it. Tree is nil
// for non-Go files and for Go files that failed to parse; detectors fall
// back to the textual view in that case.
type Source struct {
	Path    string
	Content string
	Text    []textual.Match
	Repeats []textual.Repeat
	Tree    *structural.File
}

// Matches returns the textual matches for one pattern name, preserving
// offset order.
func (s *Source) Matches(pattern string) []textual.Match {
	var out []textual.Match
	for i := range s.Text {
		if s.Text[i].Pattern == pattern {
			out = append(out, s.Text[i])
		}
	}
	return out
}

// HasMatch reports whether any textual match exists for the pattern.
func (s *Source) HasMatch(pattern string) bool {
	for i := range s.Text {
		if s.Text[i].Pattern == pattern {
			return true
		}
	}
	return false
}

// Detector is the fixed interface every detection unit implements.
// Detectors are pure: they read the Source and return findings, never
// touching shared state, which is what makes per-file analysis safely
// parallel.
type Detector interface {
	Name() string
	Applies(path string) bool
	Analyze(src *Source) []Finding
}

// AllDetectors returns the ordered detector list. The correlator is not
// here; it runs after per-file detection as a separate, purely additive
// pass.
func AllDetectors() []Detector {
	return []Detector{
		&modelDetector{},
		&lifecycleDetector{},
		&promptDetector{},
		&compactFormatDetector{},
	}
}
