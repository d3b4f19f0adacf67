// Package tokens estimates prompt token counts and trims transcripts to a
// token budget before they are embedded in summary prompts.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// charsPerToken is the fallback estimate used when no tokenizer encoding
// is available.
const charsPerToken = 4

// Counter counts tokens with tiktoken and falls back to a chars/4
// estimate for text the tokenizer cannot handle.
type Counter struct {
	once  sync.Once
	codec tokenizer.Codec
}

// NewCounter creates a token counter.
func NewCounter() *Counter {
	return &Counter{}
}

// getCodec lazily loads the cl100k_base encoding, which is a reasonable
// approximation across the chat models used here.
func (c *Counter) getCodec() tokenizer.Codec {
	c.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			c.codec = codec
		}
	})
	return c.codec
}

// Count returns the token count for text.
func (c *Counter) Count(text string) int {
	if codec := c.getCodec(); codec != nil {
		if ids, _, err := codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// TruncateTranscript drops the oldest lines of a newline-separated
// transcript until it fits the budget. The most recent lines carry the
// context that matters for summarization.
func (c *Counter) TruncateTranscript(transcript string, budget int) string {
	if budget <= 0 || c.Count(transcript) <= budget {
		return transcript
	}

	lines := strings.Split(transcript, "\n")
	for len(lines) > 1 {
		lines = lines[1:]
		candidate := strings.Join(lines, "\n")
		if c.Count(candidate) <= budget {
			return candidate
		}
	}

	// A single oversized line: cut by the character estimate.
	last := lines[0]
	max := budget * charsPerToken
	if len(last) > max {
		last = last[len(last)-max:]
	}
	return last
}
