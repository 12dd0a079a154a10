// Package catalog is the single source of truth for every pattern the
// scan engine recognizes: the generic model-identifier grammar, the
// invocation-call registry, lifecycle keys with their documented platform
// defaults, and the named thresholds shared by all detectors.
//
// Detectors must consume these tables instead of re-declaring patterns.
// A partial copy of the invocation registry in a detector once caused a
// streaming call shape to be missed entirely, so the registry lives here
// and nowhere else.
package catalog

import "regexp"

// Version identifies the pattern table revision. Bump when patterns,
// defaults, or thresholds change so cached results can be invalidated.
const Version = "2025.08"

// Thresholds. These are heuristics carried over from the documented
// behavior of the reference scanner, not tuned constants.
const (
	// CharsPerToken is the static token approximation (1 token ≈ 4 chars).
	// It is deliberately crude; findings label every estimate derived from
	// it as an approximation.
	CharsPerToken = 4

	// LargePromptTokens is the minimum static token estimate for a prompt
	// builder to be flagged as a caching candidate. Below this, repeated
	// content is too small for provider-side prompt caching minimums.
	LargePromptTokens = 50

	// MinRepeatedLiteralLen is the minimum normalized length for a string
	// literal to participate in repeated-context bucketing. Shorter strings
	// repeat for benign reasons (log labels, delimiters).
	MinRepeatedLiteralLen = 60

	// MinRepeatCount is how many occurrences of the same normalized literal
	// constitute "repeated prompt context" within one file.
	MinRepeatCount = 2

	// SerializeProximityLines bounds how far a serialize-to-text call may
	// sit from an invocation call site and still be attributed to it.
	SerializeProximityLines = 10

	// MinSchemaKeyRepeats is the repeated-quoted-key count above which
	// instruction text is treated as carrying an embedded schema.
	MinSchemaKeyRepeats = 3
)

// Reference defaults for managed-runtime lifecycle settings, sourced from
// the platform documentation. Used only for factual comparison, never as a
// prescribed target.
const (
	DefaultIdleTimeoutSeconds = 900   // 15 minutes
	DefaultMaxLifetimeSeconds = 28800 // 8 hours
)

// Compact-format savings ceilings, documented heuristics for flat tabular
// data. Applied to char/4 token estimates, never to billed costs.
const (
	TabularSavingsRatio = 0.75
	SchemaSavingsRatio  = 0.70
)

// InvocationStyle classifies how an invocation call shape transports its
// response.
type InvocationStyle string

const (
	StyleSynchronous InvocationStyle = "synchronous"
	StyleStreaming   InvocationStyle = "streaming"
	StyleChat        InvocationStyle = "chat"
)

// InvocationPattern is one entry in the invocation-call registry.
// Pattern matches call sites in arbitrary source text; Idents matches the
// rendered callee of a structural (Go AST) call expression.
type InvocationPattern struct {
	Name    string
	Style   InvocationStyle
	Pattern *regexp.Regexp
	Idents  []string
}

// Invocations is the complete invocation-call registry. Order matters:
// streaming shapes precede their synchronous prefixes so a single call
// site resolves to exactly one entry.
var Invocations = []InvocationPattern{
	{
		Name:    "invoke-stream",
		Style:   StyleStreaming,
		Pattern: regexp.MustCompile(`\b(?:invoke_model_with_response_stream|invokeModelWithResponseStream|InvokeModelWithResponseStream)\s*\(`),
		Idents:  []string{"InvokeModelWithResponseStream"},
	},
	{
		Name:    "converse-stream",
		Style:   StyleStreaming,
		Pattern: regexp.MustCompile(`\b(?:converse_stream|converseStream|ConverseStream)\s*\(`),
		Idents:  []string{"ConverseStream"},
	},
	{
		Name:    "invoke",
		Style:   StyleSynchronous,
		Pattern: regexp.MustCompile(`\b(?:invoke_model|invokeModel|InvokeModel)\s*\(`),
		Idents:  []string{"InvokeModel"},
	},
	{
		Name:    "converse",
		Style:   StyleSynchronous,
		Pattern: regexp.MustCompile(`\b(?:converse|Converse)\s*\(`),
		Idents:  []string{"Converse"},
	},
	{
		Name:    "chat-completions-create",
		Style:   StyleChat,
		Pattern: regexp.MustCompile(`\bchat\.completions\.create\s*\(`),
		Idents:  []string{"Chat.Completions.New", "ChatCompletion"},
	},
	{
		Name:    "messages-create",
		Style:   StyleChat,
		Pattern: regexp.MustCompile(`\bmessages\.create\s*\(`),
		Idents:  []string{"Messages.New"},
	},
	{
		Name:    "invoke-agent-runtime",
		Style:   StyleSynchronous,
		Pattern: regexp.MustCompile(`\b(?:invoke_agent_runtime|invokeAgentRuntime|InvokeAgentRuntime)\s*\(`),
		Idents:  []string{"InvokeAgentRuntime"},
	},
}

// InvocationByIdent resolves a structural callee (e.g. "client.InvokeModel")
// against the registry. Returns nil if no entry matches.
func InvocationByIdent(callee string) *InvocationPattern {
	for i := range Invocations {
		for _, id := range Invocations[i].Idents {
			if hasSuffixSegment(callee, id) {
				return &Invocations[i]
			}
		}
	}
	return nil
}

func hasSuffixSegment(callee, ident string) bool {
	if callee == ident {
		return true
	}
	n := len(callee) - len(ident)
	return n > 0 && callee[n-1] == '.' && callee[n:] == ident
}

// LifecycleKey describes one managed-runtime lifecycle setting with its
// documented platform default.
type LifecycleKey struct {
	Name    string
	Default int
	Unit    string
	Pattern *regexp.Regexp // capture group 1 = configured value
}

// LifecycleKeys covers the declarative and imperative spellings across
// Python, TypeScript, and infrastructure templates.
var LifecycleKeys = []LifecycleKey{
	{
		Name:    "idleRuntimeSessionTimeout",
		Default: DefaultIdleTimeoutSeconds,
		Unit:    "seconds",
		Pattern: regexp.MustCompile(`['"]?[Ii]dle[Rr]untime[Ss]ession[Tt]imeout['"]?\s*[:=]\s*(\d+)`),
	},
	{
		Name:    "maxLifetime",
		Default: DefaultMaxLifetimeSeconds,
		Unit:    "seconds",
		Pattern: regexp.MustCompile(`['"]?[Mm]ax[Ll]ifetime['"]?\s*[:=]\s*(\d+)`),
	},
}

// Pattern names emitted by the textual analyzer. Each name keys a finding
// path in exactly one detector.
const (
	PatModelID          = "model-id"
	PatLifecycleConfig  = "lifecycle-config"
	PatRuntimeCreate    = "runtime-create"
	PatStopSession      = "stop-session"
	PatCachingMarker    = "caching-marker"
	PatServiceTier      = "service-tier"
	PatRuntimeApp       = "runtime-app"
	PatEntrypoint       = "entrypoint"
	PatAsyncTask        = "async-task"
	PatStreamCompose    = "stream-compose"
	PatSessionMgmt      = "session-management"
	PatDeployment       = "deployment"
	PatAuth             = "auth"
	PatSerializeCall    = "serialize-call"
	PatDynamicInterp    = "dynamic-interpolation"
	PatInstructionField = "instruction-field"
)

// TextPatterns maps pattern names to the regexps the textual analyzer runs
// over every file. Invocation shapes are added separately from Invocations
// so the registry stays the single source of truth.
var TextPatterns = map[string]*regexp.Regexp{
	// ModelIDPattern lives in model.go; registered here by name.
	PatModelID: ModelIDPattern,

	PatLifecycleConfig: regexp.MustCompile(`[Ll]ifecycle[Cc]onfiguration`),
	PatRuntimeCreate:   regexp.MustCompile(`\b(?:create_agent_runtime|update_agent_runtime)\s*\(|\bnew\s+\w*agentcore\w*\.(?:Cfn)?Runtime\s*\(|\b(?:CreateAgentRuntime|UpdateAgentRuntime)\b`),
	PatStopSession:     regexp.MustCompile(`(?i)\b(?:StopRuntimeSession|stop_runtime_session|stop_session)\b`),
	PatCachingMarker:   regexp.MustCompile(`\b(?:cache_control|cacheControl|cachePoint|CachePoint)\b`),
	PatServiceTier:     regexp.MustCompile(`['"]?(?:service_tier|serviceTier|ServiceTier)['"]?\s*[:=]\s*['"]([a-z]+)['"]`),

	PatRuntimeApp:    regexp.MustCompile(`\bBedrockAgentCoreApp\s*\(|\bfrom\s+bedrock_agentcore\s+import\b|\bimport\s+bedrock_agentcore\b`),
	PatEntrypoint:    regexp.MustCompile(`@app\.entrypoint\b`),
	PatAsyncTask:     regexp.MustCompile(`@app\.async_task\b|\badd_async_task\s*\(|\basyncio\.create_task\s*\(`),
	PatStreamCompose: regexp.MustCompile(`\bstream_async\b|\bfor\s+\w+\s+in\s+stream\b|(?s)\basync\s+def\s+\w+\([^)]*\).*?\byield\b`),
	PatSessionMgmt:   regexp.MustCompile(`\bRequestContext\b|\bsession_id\b|--session-id\b`),
	PatDeployment:    regexp.MustCompile(`\bagentcore\s+launch(\s+--local(?:-build)?)?`),
	PatAuth:          regexp.MustCompile(`\bcustomJWTAuthorizer\b|\bIAM\s+SigV4\b|--authorizer-config\b`),

	PatSerializeCall: regexp.MustCompile(`\bjson\.dumps\s*\(|\bJSON\.stringify\s*\(|\bjson\.Marshal\s*\(|\.to_json\s*\(`),
	PatDynamicInterp: regexp.MustCompile("f['\"][^'\"\n]*\\{[A-Za-z_]|\\.format\\s*\\(|\\$\\{[A-Za-z_]|\\bSprintf\\s*\\("),

	// Keyword-style instruction arguments in non-Go sources; group 1 is the
	// field name, the captured text starts at the opening quote.
	PatInstructionField: regexp.MustCompile(`\b(system_prompt|systemPrompt|instructions|system)\s*[:=]\s*(?:f?['"]|` + "`" + `)`),
}

// ServiceTierCategories maps an explicit service-tier value to its pricing
// category and a neutral pricing-model note.
var ServiceTierCategories = map[string]struct {
	Category string
	Pricing  string
}{
	"priority": {"premium", "Processed ahead of standard traffic at a price premium over the standard tier."},
	"flex":     {"cost-optimized", "Discounted rate in exchange for flexible scheduling; suited to batch-style workloads."},
	"default":  {"standard", "Standard on-demand pricing."},
	"reserved": {"ultra-premium", "Fixed price for reserved capacity with a 99.5% availability commitment."},
}

// JSON-shape matchers used on captured instruction text.
var (
	JSONObjectLiteral = regexp.MustCompile(`\{[^{}]*"[^"]+"\s*:\s*[^{}]+\}`)
	QuotedKey         = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"\s*:`)
)
