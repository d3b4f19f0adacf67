package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/canvass-ai/surveyd/internal/config"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// RegisterFactory registers a provider factory. Registering the same type
// twice replaces the earlier factory.
func RegisterFactory(f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[f.Type] = f
}

// GetFactory returns the factory for a provider type.
func GetFactory(providerType string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[providerType]
	if !ok {
		return Factory{}, fmt.Errorf("no factory registered for provider type %q", providerType)
	}
	return f, nil
}

// IsRegistered returns true if a provider type is registered.
func IsRegistered(providerType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[providerType]
	return ok
}

// ListTypes returns all registered provider type names, sorted.
func ListTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ClearFactories removes all registered factories (for testing only).
func ClearFactories() {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories = make(map[string]Factory)
}

// FromConfig constructs every registered provider from configuration.
func FromConfig(cfg *config.Config) (Set, error) {
	sections := map[string]config.ProviderConfig{
		NameOpenAI: cfg.Providers.OpenAI,
		NameGroq:   cfg.Providers.Groq,
		NameGemini: cfg.Providers.Gemini,
		NameHF:     cfg.Providers.HF,
	}

	set := make(Set, len(sections))
	for name, section := range sections {
		f, err := GetFactory(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
		}
		set[name] = f.Create(section, cfg.Model)
	}
	return set, nil
}
