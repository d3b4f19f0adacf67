package hf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/canvass-ai/surveyd/internal/config"
	"github.com/canvass-ai/surveyd/internal/domain"
)

var testParams = config.ModelParams{Temperature: 0.7, TopP: 0.9, MaxTokens: 1024}

func TestGenerateDegradedStub(t *testing.T) {
	p := New("", "mistralai/Mistral-7B-Instruct-v0.2", testParams)

	if !p.Degraded() {
		t.Error("Degraded() = false without key")
	}

	res := p.Generate(context.Background(), &domain.Request{Prompt: "What crops grow best?"})
	if !res.OK {
		t.Fatalf("degraded mode must succeed, got %s", res.Detail)
	}
	if !strings.HasPrefix(res.Text, "[hf local stub] ") {
		t.Errorf("Text = %q, want stub prefix", res.Text)
	}
	if !strings.Contains(res.Text, "What crops grow best?") {
		t.Errorf("Text = %q, want prompt echo", res.Text)
	}
}

func TestGenerateDegradedStubTruncatesEcho(t *testing.T) {
	p := New("", "m", testParams)

	long := strings.Repeat("x", 500)
	res := p.Generate(context.Background(), &domain.Request{Prompt: long})

	if len(res.Text) != len(stubPrefix)+stubEchoLimit {
		t.Errorf("len(Text) = %d, want %d", len(res.Text), len(stubPrefix)+stubEchoLimit)
	}
}

func TestGenerateStripsPromptEcho(t *testing.T) {
	var gotReq inferenceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer hf-key" {
			t.Errorf("Authorization = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode([]inferenceResult{
			{GeneratedText: gotReq.Inputs + " the completion"},
		})
	}))
	defer srv.Close()

	p := New("hf-key", "some/model", testParams, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res := p.Generate(context.Background(), &domain.Request{Prompt: "Tell me about soil."})

	if !res.OK {
		t.Fatalf("Generate failed: %s", res.Detail)
	}
	if res.Text != "the completion" {
		t.Errorf("Text = %q, want prompt echo stripped", res.Text)
	}
	if gotReq.Parameters.MaxNewTokens != 1024 {
		t.Errorf("MaxNewTokens = %d", gotReq.Parameters.MaxNewTokens)
	}
}

func TestGenerateModelInPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode([]inferenceResult{{GeneratedText: "ok"}})
	}))
	defer srv.Close()

	p := New("hf-key", "mistralai/Mistral-7B-Instruct-v0.2", testParams, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	p.Generate(context.Background(), &domain.Request{Prompt: "hi"})

	if !strings.Contains(gotPath, "mistralai%2FMistral-7B-Instruct-v0.2") {
		t.Errorf("path = %q, want escaped model id", gotPath)
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New("hf-key", "some/model", testParams, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res := p.Generate(context.Background(), &domain.Request{Prompt: "hi"})

	if res.OK {
		t.Fatal("expected failure on upstream 503")
	}
	if res.ErrKind != domain.ErrProviderCallFailed {
		t.Errorf("ErrKind = %q", res.ErrKind)
	}
}

func TestGenerateUnexpectedBodyPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"some": "other task output"}`))
	}))
	defer srv.Close()

	p := New("hf-key", "some/model", testParams, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res := p.Generate(context.Background(), &domain.Request{Prompt: "hi"})

	if !res.OK {
		t.Fatalf("Generate failed: %s", res.Detail)
	}
	if !strings.Contains(res.Text, "other task output") {
		t.Errorf("Text = %q, want raw body passthrough", res.Text)
	}
}
