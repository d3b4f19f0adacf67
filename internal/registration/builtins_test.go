package registration

import (
	"testing"

	"github.com/canvass-ai/surveyd/internal/provider"
)

func TestRegisterBuiltins(t *testing.T) {
	provider.ClearFactories()
	t.Cleanup(provider.ClearFactories)

	RegisterBuiltins()

	for _, name := range []string{provider.NameOpenAI, provider.NameGroq, provider.NameGemini, provider.NameHF} {
		if !provider.IsRegistered(name) {
			t.Errorf("provider %q not registered", name)
		}
	}

	// Safe to call again.
	RegisterBuiltins()
	if got := len(provider.ListTypes()); got != 4 {
		t.Errorf("ListTypes() has %d entries after re-register, want 4", got)
	}
}
