// Package agent holds the per-domain prompt builders. An agent turns
// (question, region, accumulated context) into a provider-ready prompt and
// declares the output shape it expects back.
package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/canvass-ai/surveyd/internal/domain"
)

// Agent is the single capability all domain agents share. Building a
// prompt is pure string formatting and never fails; provider invocation
// and normalization failures belong to downstream components.
type Agent interface {
	// Domain returns the subject area this agent serves.
	Domain() string

	// BuildPrompt renders the provider-ready prompt for a question.
	BuildPrompt(question, region string, extra map[string]any) domain.Prompt

	// Shape returns the expected response fields with example values.
	Shape() map[string]any

	// ProviderName returns the provider this agent is bound to.
	ProviderName() string

	// Model returns the model override for this agent, empty for the
	// provider default.
	Model() string
}

// DomainAgent is a template-driven agent variant. Variants differ in role
// text, requested field names, and model binding.
type DomainAgent struct {
	domain       string
	role         string
	shapeBlock   string
	shape        map[string]any
	providerName string
	model        string
}

func (a *DomainAgent) Domain() string       { return a.domain }
func (a *DomainAgent) Shape() map[string]any { return a.shape }
func (a *DomainAgent) ProviderName() string { return a.providerName }
func (a *DomainAgent) Model() string        { return a.model }

// BuildPrompt renders the survey prompt, appending accumulated context
// when present.
func (a *DomainAgent) BuildPrompt(question, region string, extra map[string]any) domain.Prompt {
	var ctx string
	if len(extra) > 0 {
		if encoded, err := json.Marshal(extra); err == nil {
			ctx = fmt.Sprintf("\nContext: %s", encoded)
		}
	}

	text := fmt.Sprintf(`You are %s for India, region %s.
Question: %s%s

Respond with JSON:
%s
Only output JSON:`, a.role, region, question, ctx, a.shapeBlock)

	return domain.Prompt{Text: text, Shape: a.shape}
}

// shapeFromBlock derives the shape hint map from the literal JSON block
// embedded in the prompt template.
func shapeFromBlock(block string) map[string]any {
	var shape map[string]any
	if err := json.Unmarshal([]byte(block), &shape); err != nil {
		// Templates are package constants; a bad block is a programming
		// error.
		panic(fmt.Sprintf("agent: invalid shape block: %v", err))
	}
	return shape
}

// Registry maps domain names to agents.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent, replacing any previous agent for its domain.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[strings.ToLower(a.Domain())] = a
}

// Get returns the agent for a domain, or nil when unregistered.
func (r *Registry) Get(domainName string) Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[strings.ToLower(domainName)]
}

// Domains returns the registered domain names, sorted.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
