// Package normalizer turns free-form model output into well-formed
// structured objects. Normalize is a total function: it always returns a
// valid mapping, falling back to a deterministic degraded object when
// every repair provider is exhausted. Downstream consumers never branch on
// "is this JSON or not".
package normalizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/canvass-ai/surveyd/internal/domain"
	"github.com/canvass-ai/surveyd/internal/provider"
)

const (
	// fallbackTextLimit caps the raw text copied into the degraded object.
	fallbackTextLimit = 400

	// fallbackConfidence marks degraded output.
	fallbackConfidence = 0.3
)

// Normalizer repairs raw provider text into structured responses by
// cascading over providers in a fixed priority order.
type Normalizer struct {
	attempts []attempt
	logger   *slog.Logger
}

// attempt is one provider in the cascade with its call settings.
type attempt struct {
	provider provider.Provider
	jsonMode bool
}

// Option configures the normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// New creates a normalizer over the provider set. The cascade order is
// fixed: OpenAI in JSON mode first, then Groq, then Gemini plain text.
// Missing providers are skipped.
func New(providers provider.Set, opts ...Option) *Normalizer {
	n := &Normalizer{logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}

	order := []struct {
		name     string
		jsonMode bool
	}{
		{provider.NameOpenAI, true},
		{provider.NameGroq, false},
		{provider.NameGemini, false},
	}
	for _, o := range order {
		if p := providers.Get(o.name); p != nil {
			n.attempts = append(n.attempts, attempt{provider: p, jsonMode: o.jsonMode})
		}
	}
	return n
}

// Normalize repairs rawText into a structured response. The optional shape
// hint is embedded in the repair prompt to steer field names.
func (n *Normalizer) Normalize(ctx context.Context, rawText string, shape map[string]any) domain.StructuredResponse {
	prompt := repairPrompt(rawText, shape)

	for _, a := range n.attempts {
		res := a.provider.Generate(ctx, &domain.Request{Prompt: prompt, JSONMode: a.jsonMode})
		if !res.OK {
			n.logger.Debug("normalize attempt failed",
				slog.String("provider", a.provider.Name()),
				slog.String("kind", string(res.ErrKind)),
				slog.String("detail", res.Detail),
			)
			continue
		}

		parsed, err := Parse(res.Text)
		if err != nil {
			n.logger.Debug("normalize attempt failed",
				slog.String("provider", a.provider.Name()),
				slog.String("kind", string(domain.ErrParseFailure)),
				slog.String("detail", err.Error()),
			)
			continue
		}
		return parsed
	}

	return Fallback(rawText)
}

// Fallback builds the deterministic degraded object carrying a truncated
// copy of the original text and a low-confidence marker.
func Fallback(rawText string) domain.StructuredResponse {
	text := strings.TrimSpace(rawText)
	if len(text) > fallbackTextLimit {
		text = text[:fallbackTextLimit]
	}
	return domain.StructuredResponse{
		"response":   text,
		"confidence": fallbackConfidence,
	}
}

// Parse decodes text as a JSON mapping or list, tolerating markdown fences
// and surrounding prose. Lists are wrapped under "items" so the result is
// always a mapping.
func Parse(text string) (domain.StructuredResponse, error) {
	candidate := stripFences(strings.TrimSpace(text))

	if out, err := decode(candidate); err == nil {
		return out, nil
	}

	// Plain-text providers wrap JSON in prose; take the outermost object
	// or array.
	if sub := extractJSON(candidate); sub != "" {
		if out, err := decode(sub); err == nil {
			return out, nil
		}
	}

	return nil, fmt.Errorf("text is not valid structured data")
}

func decode(text string) (domain.StructuredResponse, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case map[string]any:
		return domain.StructuredResponse(t), nil
	case []any:
		return domain.StructuredResponse{"items": t}, nil
	default:
		return nil, fmt.Errorf("top-level value is %T, not a mapping or list", v)
	}
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// extractJSON returns the outermost {...} or [...] span, preferring
// whichever opens first.
func extractJSON(text string) string {
	objStart := strings.IndexByte(text, '{')
	arrStart := strings.IndexByte(text, '[')

	start, closer := objStart, byte('}')
	if start == -1 || (arrStart != -1 && arrStart < start) {
		start, closer = arrStart, byte(']')
	}
	if start == -1 {
		return ""
	}
	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return ""
	}
	return text[start : end+1]
}

// repairPrompt embeds the raw text and optional expected shape into the
// instruction sent to the repair providers.
func repairPrompt(rawText string, shape map[string]any) string {
	var b strings.Builder
	b.WriteString("Extract valid JSON from text, fix errors. Return only JSON.\n")
	if len(shape) > 0 {
		if encoded, err := json.Marshal(shape); err == nil {
			fmt.Fprintf(&b, "Expected schema: %s\n", encoded)
		}
	}
	fmt.Fprintf(&b, "Text: %s", rawText)
	return b.String()
}
