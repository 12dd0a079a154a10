package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// ModelIdentity is the parsed form of a matched model identifier. It is
// derived positionally from the generic grammar; there is no per-model
// lookup table, so identifiers for providers that do not exist yet still
// decompose correctly as long as they follow the grammar.
type ModelIdentity struct {
	Provider     string `json:"provider"`
	Family       string `json:"family"`
	Version      string `json:"version"`
	Tier         string `json:"tier,omitempty"`
	RegionPrefix string `json:"region_prefix,omitempty"`
}

// ModelIDPattern matches any model identifier of the shape
//
//	[routing-prefix.]provider.family[-variant...]-v<major>[:<minor>]
//
// e.g. us.anthropic.claude-3-7-sonnet-20250219-v1:0, amazon.nova-pro-v1:0,
// meta.llama3-70b-instruct-v1:0. One grammar covers all current and future
// provider/model combinations.
var ModelIDPattern = regexp.MustCompile(`\b(?:(us|eu|apac|global)\.)?([a-z][a-z0-9]*)\.([a-z][a-z0-9]*(?:[-.][a-z0-9]+)*)-v?(\d+)(?::(\d+))?\b`)

// tierVocabulary is the small, fixed set of tier keywords providers embed
// in model names. Parameter-size tokens like "70b" also act as a tier.
var tierVocabulary = map[string]bool{
	"lite": true, "micro": true, "pro": true, "premier": true,
	"haiku": true, "sonnet": true, "opus": true,
}

var (
	digitsOnly = regexp.MustCompile(`^\d+$`)
	sizeToken  = regexp.MustCompile(`^\d+b$`)
)

// ParseModelID decomposes a raw identifier matched by ModelIDPattern.
// Segment rules, in order: the optional routing prefix, the provider
// segment before the first remaining dot, then hyphen-delimited name
// tokens. Numeric tokens (joined by dots) form the version; 8-digit tokens
// are release dates and are skipped; a token from the tier vocabulary or a
// parameter-size token sets the tier. When the name carries no numeric
// tokens the trailing v-suffix supplies the version.
func ParseModelID(raw string) (ModelIdentity, bool) {
	m := ModelIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return ModelIdentity{}, false
	}

	id := ModelIdentity{
		RegionPrefix: m[1],
		Provider:     m[2],
	}

	tokens := strings.Split(m[3], "-")
	var versionParts []string

	// Family is the alphabetic head of the first token; a trailing digit
	// run ("llama3") starts the version.
	head := tokens[0]
	cut := len(head)
	for cut > 0 && head[cut-1] >= '0' && head[cut-1] <= '9' {
		cut--
	}
	id.Family = head[:cut]
	if cut < len(head) {
		versionParts = append(versionParts, head[cut:])
	}

	for _, tok := range tokens[1:] {
		switch {
		case len(tok) == 8 && digitsOnly.MatchString(tok):
			// release date, not a version component
		case digitsOnly.MatchString(tok):
			versionParts = append(versionParts, tok)
		case sizeToken.MatchString(tok):
			versionParts = append(versionParts, strings.TrimSuffix(tok, "b"))
			id.Tier = tok
		case tierVocabulary[tok]:
			id.Tier = tok
		}
	}

	if len(versionParts) > 0 {
		id.Version = strings.Join(versionParts, ".")
	} else if m[5] != "" {
		id.Version = fmt.Sprintf("%s.%s", m[4], m[5])
	} else {
		id.Version = m[4]
	}

	return id, true
}

// CrossRegion reports whether the identifier routes across regions.
// The "global" prefix spans all geographies; us/eu/apac span the regions
// within one geography.
func (m ModelIdentity) CrossRegion() bool { return m.RegionPrefix != "" }

// ProfileType names the routing profile for cross-region identifiers.
func (m ModelIdentity) ProfileType() string {
	switch m.RegionPrefix {
	case "":
		return "single-region"
	case "global":
		return "global"
	default:
		return "geography-specific"
	}
}
