// Package registration wires the built-in provider factories into the
// registry. Kept separate so registration is explicit rather than an
// init() side effect of importing a provider package.
package registration

import (
	"github.com/canvass-ai/surveyd/internal/provider/gemini"
	"github.com/canvass-ai/surveyd/internal/provider/groq"
	"github.com/canvass-ai/surveyd/internal/provider/hf"
	"github.com/canvass-ai/surveyd/internal/provider/openai"
)

// RegisterBuiltins registers all built-in provider factories. Safe to call
// more than once.
func RegisterBuiltins() {
	openai.RegisterProviderFactory()
	groq.RegisterProviderFactory()
	gemini.RegisterProviderFactory()
	hf.RegisterProviderFactory()
}
