package scan

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Severity ranks how strongly a finding affects cost. High means the
// pattern actively wastes spend today; medium marks a likely optimization;
// info is a neutral observation.
type Severity int

const (
	SeverityHigh Severity = iota + 1
	SeverityMedium
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a string to Severity. Returns 0 if unrecognized.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "info":
		return SeverityInfo
	default:
		return 0
	}
}

// MarshalJSON emits the severity name; the wire contract uses strings.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts the severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	name := strings.Trim(string(data), `"`)
	v := ParseSeverity(name)
	if v == 0 && name != "unknown" {
		return fmt.Errorf("unknown severity %q", name)
	}
	*s = v
	return nil
}

// Finding kinds. Closed but extensible; adding a kind means adding a
// constant here and an emission path in exactly one detector.
const (
	KindModelUsage            = "model-usage"
	KindInvocationPattern     = "invocation-pattern"
	KindServiceTier           = "service-tier"
	KindServiceTierMissing    = "service-tier-missing"
	KindCrossRegionCaching    = "cross-region-caching"
	KindLifecycleIdleTimeout  = "lifecycle-idle-timeout"
	KindLifecycleMaxLifetime  = "lifecycle-max-lifetime"
	KindLifecycleMissing      = "lifecycle-missing"
	KindProactiveTermination  = "proactive-termination"
	KindManagedRuntime        = "managed-runtime"
	KindRuntimeEntrypoint     = "runtime-entrypoint"
	KindRuntimeAsyncTask      = "runtime-async-task"
	KindStreamingResponse     = "streaming-response"
	KindSessionManagement     = "session-management"
	KindDeployment            = "deployment"
	KindAuth                  = "auth"
	KindRecurringPrompt       = "recurring-prompt-static-content"
	KindPromptBuilder         = "prompt-builder"
	KindInvocationInLoop      = "invocation-in-loop"
	KindRepeatedPromptContext = "repeated-prompt-context"
	KindStructuredPayload     = "structured-payload-near-invocation"
	KindSchemaInInstructions  = "schema-in-instructions"
	KindJSONVariableInPrompt  = "json-variable-in-prompt"
	KindCrossServiceImpact    = "cross-service-cost-impact"
)

// Finding is one reported pattern match with location and cost context.
// CostConsideration states facts (observed value vs documented default,
// estimated token counts), never instructions. Metadata is kind-specific;
// values must be JSON-stable types so serialization is byte-identical
// across runs.
type Finding struct {
	Kind              string         `json:"kind"`
	File              string         `json:"file"`
	Line              int            `json:"line"`
	Severity          Severity       `json:"severity"`
	Description       string         `json:"description"`
	CostConsideration string         `json:"cost_consideration"`
	Metadata          map[string]any `json:"metadata,omitempty"`

	// Matched holds the captured source text that triggered the finding.
	// It feeds Identity and stays off the wire.
	Matched string `json:"-"`
}

// Identity returns the stable identity of a finding: kind, location, and a
// content hash of the matched text. Findings carry no generated ids, so
// identical input always yields identical identities.
func (f *Finding) Identity() string {
	h := fnv.New64a()
	h.Write([]byte(f.Matched))
	return fmt.Sprintf("%s|%s|%d|%016x", f.Kind, f.File, f.Line, h.Sum64())
}

// dedupe drops findings whose identity was already seen, keeping the first.
// Detectors are independent, so two of them can report the same occurrence.
func dedupe(findings []Finding) []Finding {
	seen := make(map[string]struct{}, len(findings))
	out := findings[:0]
	for i := range findings {
		id := findings[i].Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, findings[i])
	}
	return out
}

// Meta carries per-scan bookkeeping.
type Meta struct {
	FilesScanned int      `json:"files_scanned"`
	FilesSkipped int      `json:"files_skipped"`
	Skipped      []string `json:"skipped,omitempty"`
	Truncated    bool     `json:"truncated"`
}

// Estimate sizes a scan without reading file contents.
type Estimate struct {
	FileCount  int   `json:"file_count"`
	TotalBytes int64 `json:"total_bytes"`
	PrunedDirs int   `json:"pruned_dirs"`
	Truncated  bool  `json:"truncated"`
}

// Result is the ordered outcome of one scan. Immutable once returned: the
// scanner builds a fresh Result per invocation and the cache replaces its
// slot wholesale.
type Result struct {
	Root           string         `json:"root"`
	TotalFindings  int            `json:"total_findings"`
	FindingsByKind map[string]int `json:"findings_by_kind"`
	Findings       []Finding      `json:"findings"`
	Meta           Meta           `json:"meta"`
	Estimate       *Estimate      `json:"estimate,omitempty"`
}

func summarize(findings []Finding) map[string]int {
	byKind := make(map[string]int)
	for i := range findings {
		byKind[findings[i].Kind]++
	}
	return byKind
}
