// Package provider defines the uniform capability boundary over the LLM
// backends and the factory registry used to construct them from config.
//
// # Adding a new provider
//
// Implement the Provider interface in a subpackage and expose an explicit
// registration function that calls RegisterFactory. Wire that registration
// from internal/registration (or tests) so we avoid init() side effects.
package provider

import (
	"context"

	"github.com/canvass-ai/surveyd/internal/config"
	"github.com/canvass-ai/surveyd/internal/domain"
)

// Provider is the uniform "generate text from prompt" capability.
// Implementations never panic and never return a Go error: every failure
// is mapped to a ProviderResult with OK=false and an ErrorKind, so callers
// always receive a result.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *domain.Request) *domain.ProviderResult
}

// Well-known provider names. The set is static; the orchestration layers
// reference providers by these names only.
const (
	NameOpenAI = "openai"
	NameGroq   = "groq"
	NameGemini = "gemini"
	NameHF     = "hf"
)

// Factory describes how to build one provider type from configuration.
type Factory struct {
	// Type is the provider name this factory builds.
	Type string

	// Description is a human-readable summary for diagnostics.
	Description string

	// Create builds the provider from its config section and the shared
	// sampling defaults.
	Create func(cfg config.ProviderConfig, params config.ModelParams) Provider
}

// Set is the constructed provider collection, keyed by name.
type Set map[string]Provider

// Get returns the named provider or nil when unknown.
func (s Set) Get(name string) Provider {
	return s[name]
}
