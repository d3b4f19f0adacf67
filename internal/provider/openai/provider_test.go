package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openaiapi "github.com/canvass-ai/surveyd/internal/api/openai"
	"github.com/canvass-ai/surveyd/internal/config"
	"github.com/canvass-ai/surveyd/internal/domain"
)

var testParams = config.ModelParams{Temperature: 0.7, TopP: 0.9, MaxTokens: 1024}

func TestGenerateMissingKey(t *testing.T) {
	p := New("", "gpt-4o-mini", testParams)

	res := p.Generate(context.Background(), &domain.Request{Prompt: "hi"})
	if res.OK {
		t.Fatal("expected failure without API key")
	}
	if res.ErrKind != domain.ErrProviderUnavailable {
		t.Errorf("ErrKind = %q, want %q", res.ErrKind, domain.ErrProviderUnavailable)
	}
}

func TestGenerate(t *testing.T) {
	var gotReq openaiapi.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(openaiapi.ChatCompletionResponse{
			Choices: []openaiapi.Choice{
				{Message: openaiapi.Message{Role: "assistant", Content: `{"ok": true}`}},
			},
		})
	}))
	defer srv.Close()

	p := New("sk-test", "gpt-4o-mini", testParams, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res := p.Generate(context.Background(), &domain.Request{Prompt: "hi", JSONMode: true})

	if !res.OK {
		t.Fatalf("Generate failed: %s", res.Detail)
	}
	if res.Text != `{"ok": true}` {
		t.Errorf("Text = %q", res.Text)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want default filled in", gotReq.Model)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("ResponseFormat = %+v, want json_object", gotReq.ResponseFormat)
	}
	if gotReq.Temperature != 0.7 || gotReq.MaxTokens != 1024 {
		t.Errorf("sampling defaults not applied: %+v", gotReq)
	}
}

func TestGenerateModelOverride(t *testing.T) {
	var gotReq openaiapi.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(openaiapi.ChatCompletionResponse{
			Choices: []openaiapi.Choice{{Message: openaiapi.Message{Content: "ok"}}},
		})
	}))
	defer srv.Close()

	p := New("sk-test", "gpt-4o-mini", testParams, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	p.Generate(context.Background(), &domain.Request{Prompt: "hi", Model: "gpt-4o"})

	if gotReq.Model != "gpt-4o" {
		t.Errorf("model = %q, want override", gotReq.Model)
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New("sk-test", "gpt-4o-mini", testParams, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res := p.Generate(context.Background(), &domain.Request{Prompt: "hi"})

	if res.OK {
		t.Fatal("expected failure on upstream 500")
	}
	if res.ErrKind != domain.ErrProviderCallFailed {
		t.Errorf("ErrKind = %q, want %q", res.ErrKind, domain.ErrProviderCallFailed)
	}
}
