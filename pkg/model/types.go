// Package model defines the persisted resource types the gateway routes
// against: providers, groups, access keys, and per-provider failure counters.
package model

// Protocol identifies which upstream wire shape a provider or group speaks.
type Protocol string

const (
	// ProtocolOpenAI is the /v1/chat/completions-style wire shape.
	ProtocolOpenAI Protocol = "O"
	// ProtocolAnthropic is the /v1/messages-style wire shape.
	ProtocolAnthropic Protocol = "A"
)

// Provider is one configured upstream endpoint. Providers are owned by the
// admin surface and are never mutated by the forwarding engine.
type Provider struct {
	Name      string   `json:"name"`
	Protocol  Protocol `json:"protocol"`
	Endpoint  string   `json:"endpoint"`
	APIKey    string   `json:"apiKey"`
	ProxyURL  string   `json:"proxyUrl,omitempty"`
	RealModel string   `json:"realModel,omitempty"`
}

// Group is a named, ordered pool of provider names. The group name is the
// string clients place in the request body's "model" field.
type Group struct {
	Name      string   `json:"name"`
	Protocol  Protocol `json:"protocol"`
	Providers []string `json:"providers"`
}

// AccessKey authenticates inbound chat/message requests via bearer token.
type AccessKey struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// ProviderStats is the persisted, advisory lifetime failure counter for one
// provider. It is read-modify-written on each attempt failure; races under
// concurrency are tolerated (see SPEC_FULL.md §5).
type ProviderStats struct {
	Failures int64 `json:"failures"`
}
