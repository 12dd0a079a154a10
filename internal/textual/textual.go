// Package textual implements the pattern-based analyzer that works on any
// source text. It is the only analysis available for languages without
// structural support and the universal fallback when structural parsing
// fails. It has no notion of scope or control flow.
package textual

import (
	"hash/fnv"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/costscan/internal/catalog"
)

// Match is one pattern hit: which catalog pattern fired, where, and what
// the capture groups held.
type Match struct {
	Pattern string
	Line    int
	Start   int
	End     int
	Text    string
	Groups  []string
}

// Repeat is one bucket of repeated string literals within a file.
type Repeat struct {
	Line       int // first occurrence
	Count      int
	Length     int // normalized length
	Normalized string
	Hash       uint64
}

// ScanAll applies every catalog text pattern plus the invocation registry
// across the full content. Matches on comment lines and in
// validation-message string contexts are suppressed.
// Results are ordered by offset, then pattern name, for determinism.
func ScanAll(content string) []Match {
	var out []Match

	names := make([]string, 0, len(catalog.TextPatterns))
	for name := range catalog.TextPatterns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		out = append(out, scanPattern(content, name, catalog.TextPatterns[name])...)
	}
	for i := range catalog.Invocations {
		inv := &catalog.Invocations[i]
		out = append(out, scanPattern(content, "invocation:"+inv.Name, inv.Pattern)...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

func scanPattern(content, name string, re *regexp.Regexp) []Match {
	var out []Match
	for _, loc := range re.FindAllStringSubmatchIndex(content, -1) {
		start, end := loc[0], loc[1]
		if Suppressed(content, start) {
			continue
		}
		m := Match{
			Pattern: name,
			Line:    lineAt(content, start),
			Start:   start,
			End:     end,
			Text:    content[start:end],
		}
		for g := 1; g*2 < len(loc); g++ {
			if loc[g*2] < 0 {
				m.Groups = append(m.Groups, "")
			} else {
				m.Groups = append(m.Groups, content[loc[g*2]:loc[g*2+1]])
			}
		}
		out = append(out, m)
	}
	return out
}

// validationKeywords mark string literals that merely describe a pattern
// (error messages, examples) rather than use one.
var validationKeywords = []string{
	"error", "validate", "validation", "pattern", "format",
	"example", "e.g.", "must follow", "invalid", "required",
	"placeholder", "unsupported", "deprecated",
}

// Suppressed reports whether a match at the given offset sits on a comment
// line or inside a string literal whose line carries validation wording.
func Suppressed(content string, start int) bool {
	lineStart := strings.LastIndexByte(content[:start], '\n') + 1
	before := content[lineStart:start]

	if strings.Contains(before, "//") || strings.Contains(before, "#") {
		return true
	}

	// Odd quote count before the match means we are inside a literal.
	inString := strings.Count(before, `"`)%2 == 1 ||
		strings.Count(before, "'")%2 == 1 ||
		strings.Count(before, "`")%2 == 1
	if !inString {
		return false
	}

	lineEnd := strings.IndexByte(content[start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(content)
	} else {
		lineEnd += start
	}
	line := strings.ToLower(content[lineStart:lineEnd])
	for _, kw := range validationKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

// stringLiteral matches single- or double-quoted literals on one line, and
// backtick literals across lines.
var stringLiteral = regexp.MustCompile("\"[^\"\n]+\"|'[^'\n]+'|`[^`]+`")

// RepeatedLiterals buckets normalized string literals of at least
// catalog.MinRepeatedLiteralLen characters by content hash and returns the
// buckets that reach catalog.MinRepeatCount, ordered by first occurrence.
func RepeatedLiterals(content string) []Repeat {
	type bucket struct {
		first  int
		count  int
		length int
		norm   string
	}
	buckets := make(map[uint64]*bucket)
	var order []uint64

	for _, loc := range stringLiteral.FindAllStringIndex(content, -1) {
		lit := content[loc[0]+1 : loc[1]-1] // strip quotes
		norm := normalize(lit)
		if len(norm) < catalog.MinRepeatedLiteralLen {
			continue
		}
		h := hashString(norm)
		b, ok := buckets[h]
		if !ok {
			b = &bucket{first: lineAt(content, loc[0]), length: len(norm), norm: norm}
			buckets[h] = b
			order = append(order, h)
		}
		b.count++
	}

	var out []Repeat
	for _, h := range order {
		b := buckets[h]
		if b.count >= catalog.MinRepeatCount {
			out = append(out, Repeat{
				Line:       b.first,
				Count:      b.count,
				Length:     b.length,
				Normalized: b.norm,
				Hash:       h,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func lineAt(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}

// LineAt exposes 1-indexed line lookup for detectors that post-process
// match spans.
func LineAt(content string, offset int) int { return lineAt(content, offset) }

// MatchingParen returns the offset of the parenthesis closing the one at
// open, skipping quoted sections, or -1. Detectors use it to bound a call's
// argument list instead of a fixed lookahead window, so one call's
// arguments are never attributed to its neighbor.
func MatchingParen(content string, open int) int {
	if open >= len(content) || content[open] != '(' {
		return -1
	}
	depth := 1
	for i := open + 1; i < len(content); i++ {
		switch content[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		case '"', '\'', '`':
			quote := content[i]
			for i++; i < len(content); i++ {
				if content[i] == quote && content[i-1] != '\\' {
					break
				}
			}
		}
	}
	return -1
}
