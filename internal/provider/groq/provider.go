// Package groq implements the fast/cheap fallback provider. Groq exposes
// an OpenAI-compatible chat completions endpoint, so the provider reuses
// the shared API client with Groq's base URL.
package groq

import (
	"context"
	"net/http"

	openaiapi "github.com/canvass-ai/surveyd/internal/api/openai"
	"github.com/canvass-ai/surveyd/internal/config"
	"github.com/canvass-ai/surveyd/internal/domain"
	"github.com/canvass-ai/surveyd/internal/provider"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// Provider implements provider.Provider against the Groq API.
type Provider struct {
	client       *openaiapi.Client
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	defaultModel string
	params       config.ModelParams
}

// New creates a new Groq provider.
func New(apiKey, defaultModel string, params config.ModelParams, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		defaultModel: defaultModel,
		params:       params,
	}
	for _, opt := range opts {
		opt(p)
	}

	clientOpts := []openaiapi.ClientOption{openaiapi.WithBaseURL(p.baseURL)}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, openaiapi.WithHTTPClient(p.httpClient))
	}
	p.client = openaiapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string { return provider.NameGroq }

// Generate executes one chat completion against Groq.
func (p *Provider) Generate(ctx context.Context, req *domain.Request) *domain.ProviderResult {
	if p.apiKey == "" {
		return domain.Failure(domain.ErrProviderUnavailable, "GROQ_API_KEY missing")
	}

	apiReq := &openaiapi.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    []openaiapi.Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}
	if apiReq.Model == "" {
		apiReq.Model = p.defaultModel
	}
	if apiReq.Temperature == 0 {
		apiReq.Temperature = p.params.Temperature
	}
	if apiReq.TopP == 0 {
		apiReq.TopP = p.params.TopP
	}
	if apiReq.MaxTokens == 0 {
		apiReq.MaxTokens = p.params.MaxTokens
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openaiapi.ResponseFormat{Type: "json_object"}
	}

	text, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "groq: %v", err)
	}
	return domain.Success(text)
}

// RegisterProviderFactory registers the Groq factory with the provider
// registry.
func RegisterProviderFactory() {
	if provider.IsRegistered(provider.NameGroq) {
		return
	}
	provider.RegisterFactory(provider.Factory{
		Type:        provider.NameGroq,
		Description: "Groq OpenAI-compatible chat completions provider",
		Create: func(cfg config.ProviderConfig, params config.ModelParams) provider.Provider {
			var opts []ProviderOption
			if cfg.BaseURL != "" {
				opts = append(opts, WithBaseURL(cfg.BaseURL))
			}
			return New(cfg.APIKey, cfg.Model, params, opts...)
		},
	})
}
