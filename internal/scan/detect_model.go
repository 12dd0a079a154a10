package scan

import (
	"fmt"
	"strings"

	"github.com/ppiankov/costscan/internal/catalog"
	"github.com/ppiankov/costscan/internal/textual"
)

// modelDetector reports model identifiers, invocation call shapes,
// service-tier selection, and cross-region caching interactions. It is
// purely observational: every finding states what the code does and what
// that means for billing, never what the code should do instead.
type modelDetector struct{}

func (d *modelDetector) Name() string { return "model" }

func (d *modelDetector) Applies(string) bool { return true }

func (d *modelDetector) Analyze(src *Source) []Finding {
	var out []Finding
	out = append(out, d.modelUsage(src)...)
	out = append(out, d.invocations(src)...)
	out = append(out, d.serviceTiers(src)...)
	out = append(out, d.crossRegionCaching(src)...)
	return out
}

func (d *modelDetector) modelUsage(src *Source) []Finding {
	var out []Finding
	for _, m := range src.Matches(catalog.PatModelID) {
		id, ok := catalog.ParseModelID(m.Text)
		if !ok {
			continue
		}
		out = append(out, Finding{
			Kind:     KindModelUsage,
			File:     src.Path,
			Line:     m.Line,
			Severity: SeverityInfo,
			Description: fmt.Sprintf("Model %q from provider %s (family %s, version %s).",
				m.Text, id.Provider, id.Family, orDash(id.Version)),
			CostConsideration: "Model choice is the dominant per-request cost factor; smaller family tiers price lower per token.",
			Metadata: map[string]any{
				"provider":      id.Provider,
				"family":        id.Family,
				"version":       id.Version,
				"tier":          id.Tier,
				"region_prefix": id.RegionPrefix,
				"profile_type":  id.ProfileType(),
			},
			Matched: m.Text,
		})
	}
	return out
}

func (d *modelDetector) invocations(src *Source) []Finding {
	var out []Finding
	for _, m := range src.Text {
		name, ok := strings.CutPrefix(m.Pattern, "invocation:")
		if !ok {
			continue
		}
		pat := invocationByName(name)
		if pat == nil {
			continue
		}
		desc := fmt.Sprintf("Invocation call %s (%s response handling).", name, pat.Style)
		cost := "Each invocation bills input and output tokens at the selected model's rate."
		if pat.Style == catalog.StyleStreaming {
			cost = "Streaming bills the same tokens as a synchronous call; it changes latency perception, not cost."
		}
		out = append(out, Finding{
			Kind:              KindInvocationPattern,
			File:              src.Path,
			Line:              m.Line,
			Severity:          SeverityInfo,
			Description:       desc,
			CostConsideration: cost,
			Metadata: map[string]any{
				"invocation": name,
				"style":      string(pat.Style),
			},
			Matched: m.Text,
		})
	}
	return out
}

func (d *modelDetector) serviceTiers(src *Source) []Finding {
	var out []Finding
	for _, m := range src.Matches(catalog.PatServiceTier) {
		if len(m.Groups) < 1 {
			continue
		}
		tier := m.Groups[0]
		cat, known := catalog.ServiceTierCategories[tier]
		f := Finding{
			Kind:     KindServiceTier,
			File:     src.Path,
			Line:     m.Line,
			Severity: SeverityInfo,
			Metadata: map[string]any{"tier": tier},
			Matched:  m.Text,
		}
		if known {
			f.Description = fmt.Sprintf("Explicit service tier %q (%s).", tier, cat.Category)
			f.CostConsideration = cat.Pricing
			f.Metadata["category"] = cat.Category
		} else {
			f.Description = fmt.Sprintf("Service tier %q is not a recognized tier value.", tier)
			f.CostConsideration = "Unrecognized tier values fall back to provider defaults; pricing impact is unknown."
			f.Metadata["category"] = "unknown"
		}
		out = append(out, f)
	}

	// Invocation calls with no tier anywhere in their argument span run on
	// the default tier. The span is bounded by the balanced closing paren,
	// so two adjacent calls never borrow each other's tier.
	for _, m := range src.Text {
		name, ok := strings.CutPrefix(m.Pattern, "invocation:")
		if !ok {
			continue
		}
		if invocationByName(name) == nil {
			continue
		}
		open := m.End - 1
		end := textual.MatchingParen(src.Content, open)
		if end < 0 {
			continue
		}
		span := src.Content[open:end]
		if catalog.TextPatterns[catalog.PatServiceTier].MatchString(span) {
			continue
		}
		out = append(out, Finding{
			Kind:              KindServiceTierMissing,
			File:              src.Path,
			Line:              m.Line,
			Severity:          SeverityInfo,
			Description:       fmt.Sprintf("Call %s sets no service tier and runs on the standard tier.", name),
			CostConsideration: "Standard on-demand pricing applies. A flex tier, where workload timing allows, prices lower; priority prices higher.",
			Metadata:          map[string]any{"invocation": name, "default_tier": "default"},
			Matched:           m.Text,
		})
	}
	return out
}

func (d *modelDetector) crossRegionCaching(src *Source) []Finding {
	if !src.HasMatch(catalog.PatCachingMarker) {
		return nil
	}
	dynamic := src.HasMatch(catalog.PatDynamicInterp)

	var out []Finding
	for _, m := range src.Matches(catalog.PatModelID) {
		id, ok := catalog.ParseModelID(m.Text)
		if !ok || id.RegionPrefix == "" {
			continue
		}
		var sev Severity
		var desc, cost string
		if id.ProfileType() == "global" {
			sev = SeverityHigh
			desc = fmt.Sprintf("Prompt caching with globally routed model %q.", m.Text)
			cost = "Global routing can serve consecutive requests from different regions; caches are regional, so each region switch bills full uncached input-token price until that region's cache warms."
		} else {
			sev = SeverityMedium
			desc = fmt.Sprintf("Prompt caching with geography-routed model %q.", m.Text)
			cost = "Routing within a geography still spans regions; a request landing in a region without a warm cache bills uncached input tokens."
		}
		if dynamic {
			cost += " Dynamic prompt content invalidates cached prefixes on every change, compounding the misses."
		}
		out = append(out, Finding{
			Kind:              KindCrossRegionCaching,
			File:              src.Path,
			Line:              m.Line,
			Severity:          sev,
			Description:       desc,
			CostConsideration: cost,
			Metadata: map[string]any{
				"profile_type":    id.ProfileType(),
				"region_prefix":   id.RegionPrefix,
				"dynamic_content": dynamic,
			},
			Matched: m.Text,
		})
	}
	return out
}

func invocationByName(name string) *catalog.InvocationPattern {
	for i := range catalog.Invocations {
		if catalog.Invocations[i].Name == name {
			return &catalog.Invocations[i]
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
