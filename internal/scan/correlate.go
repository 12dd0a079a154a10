package scan

// correlate derives cross-cutting findings from what the detectors
// already produced for one file. Correlation is purely additive: it never
// rewrites or removes a detector finding.
func correlate(src *Source, findings []Finding) []Finding {
	var (
		runtime   *Finding
		streaming *Finding
		calls     int
	)
	for i := range findings {
		switch findings[i].Kind {
		case KindManagedRuntime:
			if runtime == nil {
				runtime = &findings[i]
			}
		case KindStreamingResponse:
			if streaming == nil {
				streaming = &findings[i]
			}
		case KindInvocationPattern:
			calls++
		}
	}
	if runtime == nil || streaming == nil {
		return nil
	}

	// A streaming handler inside a managed runtime bills on two meters at
	// once: model tokens for the response and runtime session-hours for as
	// long as the stream is open.
	return []Finding{{
		Kind:              KindCrossServiceImpact,
		File:              src.Path,
		Line:              runtime.Line,
		Severity:          SeverityMedium,
		Description:       "Streaming handler hosted in a managed runtime: token billing and session-hour billing run concurrently for the stream's duration.",
		CostConsideration: "Long-lived streams extend the billable session beyond the model call itself; the idle window starts only after the stream closes.",
		Metadata: map[string]any{
			"streaming_line":   streaming.Line,
			"invocation_calls": calls,
		},
	}}
}
