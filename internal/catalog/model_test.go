package catalog

import "testing"

func TestParseModelID_KnownShapes(t *testing.T) {
	tests := []struct {
		raw      string
		provider string
		family   string
		version  string
		tier     string
		prefix   string
	}{
		{"anthropic.claude-3-7-sonnet-20250219-v1:0", "anthropic", "claude", "3.7", "sonnet", ""},
		{"us.anthropic.claude-3-5-haiku-20241022-v1:0", "anthropic", "claude", "3.5", "haiku", "us"},
		{"global.anthropic.claude-sonnet-4-20250514-v1:0", "anthropic", "claude", "4", "sonnet", "global"},
		{"amazon.nova-pro-v1:0", "amazon", "nova", "1.0", "pro", ""},
		{"amazon.nova-micro-v1:0", "amazon", "nova", "1.0", "micro", ""},
		{"amazon.titan-text-premier-v1:0", "amazon", "titan", "1.0", "premier", ""},
		{"meta.llama3-70b-instruct-v1:0", "meta", "llama", "3.70", "70b", ""},
		{"meta.llama3-1-8b-instruct-v1:0", "meta", "llama", "3.1.8", "8b", ""},
		{"mistral.mistral-large-2402-v1:0", "mistral", "mistral", "2402", "", ""},
		{"cohere.command-r-plus-v1:0", "cohere", "command", "1.0", "", ""},
		{"eu.amazon.nova-lite-v1:0", "amazon", "nova", "1.0", "lite", "eu"},
	}

	for _, tt := range tests {
		id, ok := ParseModelID(tt.raw)
		if !ok {
			t.Errorf("ParseModelID(%q) did not match", tt.raw)
			continue
		}
		if id.Provider != tt.provider {
			t.Errorf("%q Provider = %q, want %q", tt.raw, id.Provider, tt.provider)
		}
		if id.Family != tt.family {
			t.Errorf("%q Family = %q, want %q", tt.raw, id.Family, tt.family)
		}
		if id.Version != tt.version {
			t.Errorf("%q Version = %q, want %q", tt.raw, id.Version, tt.version)
		}
		if id.Tier != tt.tier {
			t.Errorf("%q Tier = %q, want %q", tt.raw, id.Tier, tt.tier)
		}
		if id.RegionPrefix != tt.prefix {
			t.Errorf("%q RegionPrefix = %q, want %q", tt.raw, id.RegionPrefix, tt.prefix)
		}
	}
}

func TestParseModelID_FutureProvider(t *testing.T) {
	// Providers that do not exist yet must still decompose via the grammar.
	id, ok := ParseModelID("acme.quantum-7b-v2:1")
	if !ok {
		t.Fatal("future-shaped identifier did not match")
	}
	if id.Provider != "acme" {
		t.Errorf("Provider = %q, want acme", id.Provider)
	}
	if id.Family != "quantum" {
		t.Errorf("Family = %q, want quantum", id.Family)
	}
	if id.Tier != "7b" {
		t.Errorf("Tier = %q, want 7b", id.Tier)
	}
	if id.Version != "7" {
		t.Errorf("Version = %q, want 7", id.Version)
	}
}

func TestParseModelID_NoMatch(t *testing.T) {
	for _, raw := range []string{"gpt-4o", "not a model", "UPPER.CASE-v1"} {
		if _, ok := ParseModelID(raw); ok {
			t.Errorf("ParseModelID(%q) matched, want no match", raw)
		}
	}
}

func TestProfileType(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "single-region"},
		{"global", "global"},
		{"us", "geography-specific"},
		{"apac", "geography-specific"},
	}
	for _, tt := range tests {
		got := ModelIdentity{RegionPrefix: tt.prefix}.ProfileType()
		if got != tt.want {
			t.Errorf("ProfileType(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestInvocationByIdent(t *testing.T) {
	tests := []struct {
		callee string
		name   string
	}{
		{"client.InvokeModel", "invoke"},
		{"client.InvokeModelWithResponseStream", "invoke-stream"},
		{"bedrock.ConverseStream", "converse-stream"},
		{"svc.Converse", "converse"},
		{"client.Chat.Completions.New", "chat-completions-create"},
		{"client.Messages.New", "messages-create"},
	}
	for _, tt := range tests {
		p := InvocationByIdent(tt.callee)
		if p == nil {
			t.Errorf("InvocationByIdent(%q) = nil, want %q", tt.callee, tt.name)
			continue
		}
		if p.Name != tt.name {
			t.Errorf("InvocationByIdent(%q) = %q, want %q", tt.callee, p.Name, tt.name)
		}
	}

	if p := InvocationByIdent("fmt.Println"); p != nil {
		t.Errorf("InvocationByIdent(fmt.Println) = %q, want nil", p.Name)
	}
}

func TestLifecycleKeys_Patterns(t *testing.T) {
	tests := []struct {
		text string
		key  string
		want string
	}{
		{`"idleRuntimeSessionTimeout": 3600`, "idleRuntimeSessionTimeout", "3600"},
		{`idle_runtime_session_timeout = 300`, "", ""}, // snake_case is out of grammar
		{`IdleRuntimeSessionTimeout=900`, "idleRuntimeSessionTimeout", "900"},
		{`maxLifetime: 28800`, "maxLifetime", "28800"},
		{`"MaxLifetime" = 14400`, "maxLifetime", "14400"},
	}
	for _, tt := range tests {
		matched := false
		for _, key := range LifecycleKeys {
			m := key.Pattern.FindStringSubmatch(tt.text)
			if m == nil {
				continue
			}
			matched = true
			if key.Name != tt.key {
				t.Errorf("%q matched key %q, want %q", tt.text, key.Name, tt.key)
			}
			if m[1] != tt.want {
				t.Errorf("%q value = %q, want %q", tt.text, m[1], tt.want)
			}
		}
		if !matched && tt.key != "" {
			t.Errorf("%q matched no lifecycle key, want %q", tt.text, tt.key)
		}
	}
}
