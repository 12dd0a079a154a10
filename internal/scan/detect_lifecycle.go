package scan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/costscan/internal/catalog"
	"github.com/ppiankov/costscan/internal/textual"
)

// lifecycleDetector covers managed-runtime economics: configured
// lifecycle values compared against platform defaults, runtime creation
// without lifecycle settings, explicit session termination, and the
// architectural markers (app object, entrypoints, async tasks, streaming
// composition, session handling, deployment, auth) that shape how runtime
// hours accrue.
type lifecycleDetector struct{}

func (d *lifecycleDetector) Name() string { return "lifecycle" }

func (d *lifecycleDetector) Applies(string) bool { return true }

func (d *lifecycleDetector) Analyze(src *Source) []Finding {
	var out []Finding
	out = append(out, d.configuredValues(src)...)
	out = append(out, d.missingConfig(src)...)
	out = append(out, d.termination(src)...)
	out = append(out, d.markers(src)...)
	return out
}

// kindForLifecycleKey maps a lifecycle setting to its finding kind.
func kindForLifecycleKey(name string) string {
	if name == "maxLifetime" {
		return KindLifecycleMaxLifetime
	}
	return KindLifecycleIdleTimeout
}

func (d *lifecycleDetector) configuredValues(src *Source) []Finding {
	var out []Finding
	for _, key := range catalog.LifecycleKeys {
		for _, loc := range key.Pattern.FindAllStringSubmatchIndex(src.Content, -1) {
			if textual.Suppressed(src.Content, loc[0]) {
				continue
			}
			raw := src.Content[loc[2]:loc[3]]
			value, err := strconv.Atoi(raw)
			if err != nil {
				continue
			}
			line := textual.LineAt(src.Content, loc[0])
			f := Finding{
				Kind: kindForLifecycleKey(key.Name),
				File: src.Path,
				Line: line,
				Metadata: map[string]any{
					"key":     key.Name,
					"value":   value,
					"default": key.Default,
					"unit":    key.Unit,
				},
				Matched: src.Content[loc[0]:loc[1]],
			}
			switch {
			case value > key.Default:
				f.Severity = SeverityMedium
				f.Description = fmt.Sprintf("%s set to %d %s, above the platform default of %d.",
					key.Name, value, key.Unit, key.Default)
				f.CostConsideration = "Runtime hours bill while a session exists; a longer window keeps idle sessions billable for longer after the last request."
			case value < key.Default:
				f.Severity = SeverityInfo
				f.Description = fmt.Sprintf("%s set to %d %s, below the platform default of %d.",
					key.Name, value, key.Unit, key.Default)
				f.CostConsideration = "Idle sessions release sooner than the default, shortening the billable window after the last request."
			default:
				f.Severity = SeverityInfo
				f.Description = fmt.Sprintf("%s explicitly set to the platform default of %d %s.",
					key.Name, value, key.Unit)
				f.CostConsideration = "Matches the default billing window; the explicit setting documents the intent."
			}
			out = append(out, f)
		}
	}
	return out
}

// missingConfig flags runtime creation calls whose own argument span
// carries no lifecycle setting. The span ends at the balanced closing
// parenthesis, so a lifecycle block in a neighboring call does not count.
func (d *lifecycleDetector) missingConfig(src *Source) []Finding {
	var out []Finding
	for _, m := range src.Matches(catalog.PatRuntimeCreate) {
		open := strings.LastIndexByte(m.Text, '(')
		var span string
		switch {
		case open >= 0:
			end := textual.MatchingParen(src.Content, m.Start+open)
			if end < 0 {
				continue
			}
			span = src.Content[m.Start+open : end]
		case m.End < len(src.Content) && src.Content[m.End] == '(':
			end := textual.MatchingParen(src.Content, m.End)
			if end < 0 {
				continue
			}
			span = src.Content[m.End:end]
		default:
			continue
		}
		if hasLifecycleKey(span) {
			continue
		}
		out = append(out, Finding{
			Kind:              KindLifecycleMissing,
			File:              src.Path,
			Line:              m.Line,
			Severity:          SeverityMedium,
			Description:       "Runtime created without lifecycle configuration; platform defaults apply (15 min idle timeout, 8 h max lifetime).",
			CostConsideration: "Idle sessions bill runtime hours for up to 15 minutes after the last request under the default window.",
			Metadata: map[string]any{
				"default_idle_timeout": catalog.DefaultIdleTimeoutSeconds,
				"default_max_lifetime": catalog.DefaultMaxLifetimeSeconds,
			},
			Matched: m.Text,
		})
	}
	return out
}

func hasLifecycleKey(span string) bool {
	for _, key := range catalog.LifecycleKeys {
		if key.Pattern.MatchString(span) {
			return true
		}
	}
	return catalog.TextPatterns[catalog.PatLifecycleConfig].MatchString(span)
}

func (d *lifecycleDetector) termination(src *Source) []Finding {
	var out []Finding
	for _, m := range src.Matches(catalog.PatStopSession) {
		out = append(out, Finding{
			Kind:              KindProactiveTermination,
			File:              src.Path,
			Line:              m.Line,
			Severity:          SeverityInfo,
			Description:       "Session stopped explicitly instead of waiting for the idle timeout.",
			CostConsideration: "Explicit termination ends runtime billing immediately; relying on the idle timeout bills the full idle window.",
			Matched:           m.Text,
		})
	}
	return out
}

// marker is one architectural signal with fixed finding text. oncePerFile
// markers match on nearly every line of files that use them, so only the
// first occurrence is reported.
type marker struct {
	pattern     string
	kind        string
	oncePerFile bool
	description string
	cost        string
}

var lifecycleMarkers = []marker{
	{
		pattern:     catalog.PatRuntimeApp,
		kind:        KindManagedRuntime,
		oncePerFile: true,
		description: "Managed runtime application host.",
		cost:        "The runtime bills per session-hour on top of model usage; session lifecycle settings control how those hours accrue.",
	},
	{
		pattern:     catalog.PatEntrypoint,
		kind:        KindRuntimeEntrypoint,
		description: "Runtime entrypoint handler.",
		cost:        "Each entrypoint invocation opens or extends a billable session.",
	},
	{
		pattern:     catalog.PatAsyncTask,
		kind:        KindRuntimeAsyncTask,
		description: "Background task tied to the runtime session.",
		cost:        "Async work keeps the session alive; the session bills until the task completes and the idle window expires.",
	},
	{
		pattern:     catalog.PatStreamCompose,
		kind:        KindStreamingResponse,
		oncePerFile: true,
		description: "Streaming response composition.",
		cost:        "Streaming holds the session open for the duration of the response; output tokens bill identically to a buffered response.",
	},
	{
		pattern:     catalog.PatSessionMgmt,
		kind:        KindSessionManagement,
		oncePerFile: true,
		description: "Explicit session identifier handling.",
		cost:        "Reusing a session id continues one billable session; a fresh id per request opens a new one each time.",
	},
	{
		pattern:     catalog.PatAuth,
		kind:        KindAuth,
		oncePerFile: true,
		description: "Runtime authorizer configuration.",
		cost:        "Authorization itself is free; rejected requests still reach the endpoint but open no billable session.",
	},
}

func (d *lifecycleDetector) markers(src *Source) []Finding {
	var out []Finding
	for _, mk := range lifecycleMarkers {
		for _, m := range src.Matches(mk.pattern) {
			out = append(out, Finding{
				Kind:              mk.kind,
				File:              src.Path,
				Line:              m.Line,
				Severity:          SeverityInfo,
				Description:       mk.description,
				CostConsideration: mk.cost,
				Matched:           m.Text,
			})
			if mk.oncePerFile {
				break
			}
		}
	}
	out = append(out, d.deployments(src)...)
	return out
}

func (d *lifecycleDetector) deployments(src *Source) []Finding {
	var out []Finding
	for _, m := range src.Matches(catalog.PatDeployment) {
		local := len(m.Groups) > 0 && m.Groups[0] != ""
		f := Finding{
			Kind:     KindDeployment,
			File:     src.Path,
			Line:     m.Line,
			Severity: SeverityInfo,
			Metadata: map[string]any{"local": local},
			Matched:  m.Text,
		}
		if local {
			f.Description = "Local deployment target."
			f.CostConsideration = "Local runs bill nothing; only model calls made from the local process incur token charges."
		} else {
			f.Description = "Cloud deployment launch."
			f.CostConsideration = "Deployed runtimes bill consumption-based session-hours; no charge accrues while no sessions exist."
		}
		out = append(out, f)
	}
	return out
}
