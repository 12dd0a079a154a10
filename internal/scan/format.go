package scan

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
)

// --- Text Formatter ---

// TextFormatter writes human-readable scan output grouped by file.
type TextFormatter struct {
	color bool
}

// NewTextFormatter creates a text formatter with optional ANSI color.
func NewTextFormatter(color bool) *TextFormatter {
	return &TextFormatter{color: color}
}

func (f *TextFormatter) Format(w io.Writer, result *Result) error {
	if result.Estimate != nil {
		return f.formatEstimate(w, result)
	}

	highCount, medCount, infoCount := countSeverities(result.Findings)

	fmt.Fprintf(w, "%scostscan%s %s: %d files, %d findings\n\n",
		f.c(colorBold), f.c(colorReset), result.Root,
		result.Meta.FilesScanned, result.TotalFindings)

	byFile := groupByFile(result.Findings)
	files := sortedKeys(byFile)

	for _, file := range files {
		findings := byFile[file]
		fh, fm, fi := countSeverities(findings)

		parts := []string{}
		if fh > 0 {
			parts = append(parts, fmt.Sprintf("%s%d high%s", f.c(colorRed), fh, f.c(colorReset)))
		}
		if fm > 0 {
			parts = append(parts, fmt.Sprintf("%s%d medium%s", f.c(colorYellow), fm, f.c(colorReset)))
		}
		if fi > 0 {
			parts = append(parts, fmt.Sprintf("%s%d info%s", f.c(colorDim), fi, f.c(colorReset)))
		}

		fmt.Fprintf(w, "%s%s%s (%d findings: %s)\n", f.c(colorBold), file, f.c(colorReset),
			len(findings), strings.Join(parts, ", "))

		for _, finding := range findings {
			sevLabel := f.severityLabel(finding.Severity)
			fmt.Fprintf(w, "  %s  L%-5d %-35s %s\n", sevLabel, finding.Line,
				finding.Kind, finding.Description)
			if finding.CostConsideration != "" {
				fmt.Fprintf(w, "                 %s%s%s\n", f.c(colorDim),
					finding.CostConsideration, f.c(colorReset))
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d files scanned", result.Meta.FilesScanned)
	if highCount > 0 {
		fmt.Fprintf(w, ", %s%d high%s", f.c(colorRed), highCount, f.c(colorReset))
	}
	if medCount > 0 {
		fmt.Fprintf(w, ", %s%d medium%s", f.c(colorYellow), medCount, f.c(colorReset))
	}
	if infoCount > 0 {
		fmt.Fprintf(w, ", %s%d info%s", f.c(colorDim), infoCount, f.c(colorReset))
	}
	if result.Meta.FilesSkipped > 0 {
		fmt.Fprintf(w, ", %d unreadable", result.Meta.FilesSkipped)
	}
	if result.Meta.Truncated {
		fmt.Fprintf(w, " %s(truncated at file limit)%s", f.c(colorYellow), f.c(colorReset))
	}
	fmt.Fprintln(w)

	return nil
}

func (f *TextFormatter) formatEstimate(w io.Writer, result *Result) error {
	est := result.Estimate
	fmt.Fprintf(w, "%scostscan estimate%s %s\n\n", f.c(colorBold), f.c(colorReset), result.Root)
	fmt.Fprintf(w, "  files to scan:  %d\n", est.FileCount)
	fmt.Fprintf(w, "  total bytes:    %d\n", est.TotalBytes)
	fmt.Fprintf(w, "  pruned dirs:    %d\n", est.PrunedDirs)
	if est.Truncated {
		fmt.Fprintf(w, "  %struncated at file limit%s\n", f.c(colorYellow), f.c(colorReset))
	}
	return nil
}

func (f *TextFormatter) c(code string) string {
	if !f.color {
		return ""
	}
	return code
}

func (f *TextFormatter) severityLabel(s Severity) string {
	switch s {
	case SeverityHigh:
		return fmt.Sprintf("%sHIGH  %s", f.c(colorRed), f.c(colorReset))
	case SeverityMedium:
		return fmt.Sprintf("%sMEDIUM%s", f.c(colorYellow), f.c(colorReset))
	case SeverityInfo:
		return fmt.Sprintf("%sinfo  %s", f.c(colorDim), f.c(colorReset))
	default:
		return "??????"
	}
}

// --- JSON Formatter ---

// JSONFormatter writes scan results as indented JSON. Map keys marshal
// sorted, so byte-identical inputs produce byte-identical output.
type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter { return &JSONFormatter{} }

func (f *JSONFormatter) Format(w io.Writer, result *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// --- helpers ---

func countSeverities(findings []Finding) (high, medium, info int) {
	for _, f := range findings {
		switch f.Severity {
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		case SeverityInfo:
			info++
		}
	}
	return
}

func groupByFile(findings []Finding) map[string][]Finding {
	m := make(map[string][]Finding)
	for _, f := range findings {
		m[f.File] = append(m[f.File], f)
	}
	return m
}

func sortedKeys(m map[string][]Finding) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
