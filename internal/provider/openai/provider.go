// Package openai implements the chat-completions provider. It has priority
// for JSON-mode structured output in the normalizer cascade.
package openai

import (
	"context"
	"net/http"

	openaiapi "github.com/canvass-ai/surveyd/internal/api/openai"
	"github.com/canvass-ai/surveyd/internal/config"
	"github.com/canvass-ai/surveyd/internal/domain"
	"github.com/canvass-ai/surveyd/internal/provider"
)

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

// Provider implements provider.Provider against the OpenAI API.
type Provider struct {
	client       *openaiapi.Client
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	defaultModel string
	params       config.ModelParams
}

// New creates a new OpenAI provider.
func New(apiKey, defaultModel string, params config.ModelParams, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		params:       params,
	}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []openaiapi.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, openaiapi.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, openaiapi.WithHTTPClient(p.httpClient))
	}
	p.client = openaiapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string { return provider.NameOpenAI }

// Generate executes one chat completion. A missing credential yields
// ProviderUnavailable without any outbound call.
func (p *Provider) Generate(ctx context.Context, req *domain.Request) *domain.ProviderResult {
	if p.apiKey == "" {
		return domain.Failure(domain.ErrProviderUnavailable, "OPENAI_API_KEY missing")
	}

	apiReq := buildRequest(req, p.defaultModel, p.params)

	text, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "openai: %v", err)
	}
	return domain.Success(text)
}

// buildRequest maps a canonical request onto the chat-completions payload,
// filling unset sampling parameters from the shared defaults.
func buildRequest(req *domain.Request, defaultModel string, params config.ModelParams) *openaiapi.ChatCompletionRequest {
	apiReq := &openaiapi.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    []openaiapi.Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}
	if apiReq.Model == "" {
		apiReq.Model = defaultModel
	}
	if apiReq.Temperature == 0 {
		apiReq.Temperature = params.Temperature
	}
	if apiReq.TopP == 0 {
		apiReq.TopP = params.TopP
	}
	if apiReq.MaxTokens == 0 {
		apiReq.MaxTokens = params.MaxTokens
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openaiapi.ResponseFormat{Type: "json_object"}
	}
	return apiReq
}

// RegisterProviderFactory registers the OpenAI factory with the provider
// registry.
func RegisterProviderFactory() {
	if provider.IsRegistered(provider.NameOpenAI) {
		return
	}
	provider.RegisterFactory(provider.Factory{
		Type:        provider.NameOpenAI,
		Description: "OpenAI chat completions provider",
		Create: func(cfg config.ProviderConfig, params config.ModelParams) provider.Provider {
			var opts []ProviderOption
			if cfg.BaseURL != "" {
				opts = append(opts, WithBaseURL(cfg.BaseURL))
			}
			return New(cfg.APIKey, cfg.Model, params, opts...)
		},
	})
}
