package scan

import (
	"fmt"

	"github.com/ppiankov/costscan/internal/catalog"
	"github.com/ppiankov/costscan/internal/structural"
)

// promptDetector finds prompt construction that repeatedly resends the
// same static content: large static prompt builders called more than
// once, invocation calls inside loops, and string literals repeated
// across one file. Structural evidence comes from the parse tree when one
// exists; the repeated-literal path is textual and covers every language.
type promptDetector struct{}

func (d *promptDetector) Name() string { return "prompt" }

func (d *promptDetector) Applies(string) bool { return true }

func (d *promptDetector) Analyze(src *Source) []Finding {
	var out []Finding
	if src.Tree != nil {
		out = append(out, d.builders(src)...)
		out = append(out, d.loopCalls(src)...)
	}
	out = append(out, d.repeatedContext(src)...)
	return out
}

func (d *promptDetector) builders(src *Source) []Finding {
	var out []Finding
	for _, b := range src.Tree.Builders {
		if b.StaticTokens < catalog.LargePromptTokens {
			continue
		}
		if b.CallCount > 1 || b.InsideLoop {
			out = append(out, d.recurring(src, b))
			continue
		}
		var how string
		switch {
		case b.UsesSprintf:
			how = "format string"
		case b.UsesConcat:
			how = "concatenation"
		default:
			how = "static literals"
		}
		out = append(out, Finding{
			Kind:     KindPromptBuilder,
			File:     src.Path,
			Line:     b.Line,
			Severity: SeverityInfo,
			Description: fmt.Sprintf("Function %s builds a prompt carrying ~%d static tokens via %s.",
				b.Name, b.StaticTokens, how),
			CostConsideration: "Static prompt content above the provider caching minimum is a caching candidate if the function is ever called repeatedly. Token counts are a chars/4 approximation.",
			Metadata: map[string]any{
				"function":      b.Name,
				"static_tokens": b.StaticTokens,
				"dynamic":       b.Dynamic,
			},
		})
	}
	return out
}

func (d *promptDetector) recurring(src *Source, b structural.PromptBuilder) Finding {
	calls := b.CallCount
	if calls < 2 {
		calls = 2 // inside a loop, assume at least two iterations
	}
	// Without caching every call resends the full static prefix. With a
	// cached prefix the first call pays full price and the rest pay only
	// the dynamic remainder plus the cache-read rate.
	resent := (calls - 1) * b.StaticTokens
	sev := SeverityMedium
	if b.InsideLoop {
		sev = SeverityHigh
	}
	return Finding{
		Kind:     KindRecurringPrompt,
		File:     src.Path,
		Line:     b.Line,
		Severity: sev,
		Description: fmt.Sprintf("Function %s rebuilds ~%d static prompt tokens on each of %d+ calls.",
			b.Name, b.StaticTokens, calls),
		CostConsideration: fmt.Sprintf("Roughly %d static tokens are resent beyond the first call; a cached prefix would bill them once at full rate and thereafter at the cache-read rate. Token counts are a chars/4 approximation.", resent),
		Metadata: map[string]any{
			"function":       b.Name,
			"static_tokens":  b.StaticTokens,
			"call_count":     b.CallCount,
			"inside_loop":    b.InsideLoop,
			"resent_tokens":  resent,
			"uses_format":    b.UsesSprintf,
			"uses_concat":    b.UsesConcat,
		},
	}
}

func (d *promptDetector) loopCalls(src *Source) []Finding {
	var out []Finding
	for _, c := range src.Tree.Calls {
		if !c.InsideLoop {
			continue
		}
		out = append(out, Finding{
			Kind:     KindInvocationInLoop,
			File:     src.Path,
			Line:     c.Line,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("Invocation call %s inside a loop body.",
				c.Callee),
			CostConsideration: "Every iteration is a separately billed request; shared prompt context resent per iteration multiplies input-token cost by the iteration count.",
			Metadata: map[string]any{
				"callee":     c.Callee,
				"invocation": c.Pattern.Name,
			},
		})
	}
	return out
}

func (d *promptDetector) repeatedContext(src *Source) []Finding {
	var out []Finding
	for _, r := range src.Repeats {
		tokens := r.Length / catalog.CharsPerToken
		sev := SeverityInfo
		if tokens >= catalog.LargePromptTokens {
			sev = SeverityMedium
		}
		out = append(out, Finding{
			Kind:     KindRepeatedPromptContext,
			File:     src.Path,
			Line:     r.Line,
			Severity: sev,
			Description: fmt.Sprintf("The same %d-character literal (~%d tokens) appears %d times in this file.",
				r.Length, tokens, r.Count),
			CostConsideration: "Identical context embedded at multiple sites is resent with every request from each site; a single cached or shared definition bills it once. Token counts are a chars/4 approximation.",
			Metadata: map[string]any{
				"occurrences":      r.Count,
				"length":           r.Length,
				"estimated_tokens": tokens,
			},
		})
	}
	return out
}
