package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/canvass-ai/surveyd/internal/domain"
)

func TestFormatResults(t *testing.T) {
	results := []domain.SearchResult{
		{Title: "First", Link: "https://a.example", Snippet: "snippet one"},
		{Title: "Second", Link: "https://b.example"},
	}

	got := FormatResults(results)

	if !strings.Contains(got, "Title: First") || !strings.Contains(got, "Snippet: snippet one") {
		t.Errorf("missing first result fields:\n%s", got)
	}
	if !strings.Contains(got, "Snippet: N/A") {
		t.Errorf("empty snippet not rendered as N/A:\n%s", got)
	}
}

func TestFormatResultsEmpty(t *testing.T) {
	if got := FormatResults(nil); got != "No search results found." {
		t.Errorf("FormatResults(nil) = %q", got)
	}
}

const liteHTML = `
<table>
<tr><td><a rel="nofollow" href="https://one.example/page" class="result-link">First Result</a></td></tr>
<tr><td class="result-snippet">The first snippet with <b>markup</b> inside.</td></tr>
<tr><td><a rel="nofollow" href="https://two.example/page" class="result-link">Second &amp; Result</a></td></tr>
<tr><td class="result-snippet">Second snippet.</td></tr>
<tr><td><a rel="nofollow" href="https://three.example/page" class="result-link">Third Result</a></td></tr>
<tr><td class="result-snippet">Third snippet.</td></tr>
</table>`

func TestParseLiteResults(t *testing.T) {
	results := parseLiteResults(liteHTML, 2)

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Title != "First Result" || results[0].Link != "https://one.example/page" {
		t.Errorf("first result = %+v", results[0])
	}
	if !strings.Contains(results[0].Snippet, "first snippet") {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
	if strings.Contains(results[0].Snippet, "<b>") {
		t.Errorf("snippet kept markup: %q", results[0].Snippet)
	}
	if results[1].Title != "Second & Result" {
		t.Errorf("entity not decoded: %q", results[1].Title)
	}
}

func TestParseLiteResultsNoMatches(t *testing.T) {
	if got := parseLiteResults("<html><body>nothing here</body></html>", 5); len(got) != 0 {
		t.Errorf("results = %v, want none", got)
	}
}

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		gotQuery = r.FormValue("q")
		w.Write([]byte(liteHTML))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	results, err := d.Search(context.Background(), "solar irrigation", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotQuery != "solar irrigation" {
		t.Errorf("posted query = %q", gotQuery)
	}
	if len(results) != 3 {
		t.Errorf("len(results) = %d, want 3", len(results))
	}
}

func TestDuckDuckGoSearchEmptyQuery(t *testing.T) {
	d := NewDuckDuckGo()
	if _, err := d.Search(context.Background(), "   ", 3); err == nil {
		t.Error("Search with blank query should fail")
	}
}

func TestDuckDuckGoSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	if _, err := d.Search(context.Background(), "query", 3); err == nil {
		t.Error("Search should surface HTTP errors")
	}
}
