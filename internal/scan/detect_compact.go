package scan

import (
	"fmt"
	"strings"

	"github.com/ppiankov/costscan/internal/catalog"
)

// compactFormatDetector surfaces verbose data shaping around model calls:
// serialized JSON payloads fed into invocations, response schemas spelled
// out inside instruction text, and serialized variables interpolated into
// prompts. JSON's quoting and repeated keys inflate token counts that
// compact forms (CSV-like rows, field lists) avoid.
type compactFormatDetector struct{}

func (d *compactFormatDetector) Name() string { return "compact-format" }

func (d *compactFormatDetector) Applies(string) bool { return true }

func (d *compactFormatDetector) Analyze(src *Source) []Finding {
	var out []Finding
	out = append(out, d.payloadNearInvocation(src)...)
	out = append(out, d.schemaInInstructions(src)...)
	out = append(out, d.serializedInPrompt(src)...)
	return out
}

// payloadNearInvocation pairs each serialize-to-text call with an
// invocation call no more than SerializeProximityLines away. The tree
// supplies exact call sites for Go; other languages fall back to textual
// matches of both shapes.
func (d *compactFormatDetector) payloadNearInvocation(src *Source) []Finding {
	type site struct {
		line   int
		callee string
	}
	var serializes, invocations []site

	if src.Tree != nil {
		for _, s := range src.Tree.Serializes {
			serializes = append(serializes, site{s.Line, s.Callee})
		}
		for _, c := range src.Tree.Calls {
			invocations = append(invocations, site{c.Line, c.Callee})
		}
	} else {
		for _, m := range src.Matches(catalog.PatSerializeCall) {
			serializes = append(serializes, site{m.Line, strings.TrimRight(m.Text, " (")})
		}
		for _, m := range src.Text {
			if name, ok := strings.CutPrefix(m.Pattern, "invocation:"); ok {
				invocations = append(invocations, site{m.Line, name})
			}
		}
	}

	var out []Finding
	for _, s := range serializes {
		near := ""
		for _, inv := range invocations {
			delta := s.line - inv.line
			if delta < 0 {
				delta = -delta
			}
			if delta <= catalog.SerializeProximityLines {
				near = inv.callee
				break
			}
		}
		if near == "" {
			continue
		}
		out = append(out, Finding{
			Kind:     KindStructuredPayload,
			File:     src.Path,
			Line:     s.line,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("Serialized payload (%s) within %d lines of invocation %s.",
				s.callee, catalog.SerializeProximityLines, near),
			CostConsideration: fmt.Sprintf("JSON braces, quotes, and repeated keys are all billed input tokens; flat tabular data in a compact row format runs roughly %d%% smaller. Token counts are a chars/4 approximation.",
				int(catalog.TabularSavingsRatio*100)),
			Metadata: map[string]any{
				"serialize_call": s.callee,
				"invocation":     near,
			},
		})
	}
	return out
}

func (d *compactFormatDetector) schemaInInstructions(src *Source) []Finding {
	type instr struct {
		field string
		line  int
		text  string
	}
	var args []instr

	if src.Tree != nil {
		for _, a := range src.Tree.Instructions {
			args = append(args, instr{a.Field, a.Line, a.Text})
		}
	}
	for _, m := range src.Matches(catalog.PatInstructionField) {
		if src.Tree != nil {
			continue // tree already covers Go composite literals
		}
		args = append(args, instr{m.Groups[0], m.Line, instructionWindow(src.Content, m.End)})
	}

	var out []Finding
	for _, a := range args {
		keys := len(catalog.QuotedKey.FindAllString(a.text, -1))
		hasObject := catalog.JSONObjectLiteral.MatchString(a.text)
		if !hasObject && keys < catalog.MinSchemaKeyRepeats {
			continue
		}
		out = append(out, Finding{
			Kind:     KindSchemaInInstructions,
			File:     src.Path,
			Line:     a.line,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("Instruction field %s embeds a JSON schema example (%d quoted keys).",
				a.field, keys),
			CostConsideration: fmt.Sprintf("The schema is resent as input tokens on every call; naming the expected fields in prose runs roughly %d%% smaller than a quoted example object. Token counts are a chars/4 approximation.",
				int(catalog.SchemaSavingsRatio*100)),
			Metadata: map[string]any{
				"field":       a.field,
				"quoted_keys": keys,
			},
		})
	}
	return out
}

// instructionWindow bounds how much text after a keyword-style
// instruction argument is inspected for schema shapes. Instruction
// strings routinely span lines, so the window is a fixed slice rather
// than the match's own line.
func instructionWindow(content string, start int) string {
	const window = 1500
	end := start + window
	if end > len(content) {
		end = len(content)
	}
	return content[start:end]
}

// serializedInPrompt flags lines where a serialize call feeds directly
// into dynamic prompt interpolation, e.g. a stringified object inside a
// template string.
func (d *compactFormatDetector) serializedInPrompt(src *Source) []Finding {
	interp := map[int]bool{}
	for _, m := range src.Matches(catalog.PatDynamicInterp) {
		interp[m.Line] = true
	}
	if len(interp) == 0 {
		return nil
	}

	var out []Finding
	for _, m := range src.Matches(catalog.PatSerializeCall) {
		if !interp[m.Line] {
			continue
		}
		out = append(out, Finding{
			Kind:              KindJSONVariableInPrompt,
			File:              src.Path,
			Line:              m.Line,
			Severity:          SeverityMedium,
			Description:       "Serialized object interpolated directly into prompt text.",
			CostConsideration: "The full JSON rendering of the variable is billed as input tokens on every call; extracting only the needed fields, or a compact rendering, shrinks it. Token counts are a chars/4 approximation.",
			Matched:           m.Text,
		})
	}
	return out
}
