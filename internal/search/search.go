// Package search provides the web search collaborator consumed by the
// research stage of the topic pipeline.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/canvass-ai/surveyd/internal/domain"
)

// Client is the search capability boundary. An empty result list is
// valid, not an error.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error)
}

// FormatResults renders results as the snippet block embedded into the
// research summarization prompt.
func FormatResults(results []domain.SearchResult) string {
	if len(results) == 0 {
		return "No search results found."
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "Title: %s\n", orNA(r.Title))
		fmt.Fprintf(&b, "Link: %s\n", orNA(r.Link))
		fmt.Fprintf(&b, "Snippet: %s\n\n", orNA(r.Snippet))
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
