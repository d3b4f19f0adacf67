// Package hf implements the hosted-inference provider. When no credential
// is configured it degrades to a clearly-marked echo stub instead of
// failing, so pipelines can be exercised end to end without real keys.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/canvass-ai/surveyd/internal/config"
	"github.com/canvass-ai/surveyd/internal/domain"
	"github.com/canvass-ai/surveyd/internal/provider"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co/models"
	defaultTimeout = 120 * time.Second

	// stubPrefix marks degraded-mode output.
	stubPrefix = "[hf local stub] "

	// stubEchoLimit caps how much of the prompt the stub echoes back.
	stubEchoLimit = 200
)

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// Provider implements provider.Provider against the Hugging Face
// Inference API.
type Provider struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	defaultModel string
	params       config.ModelParams
}

// New creates a new hosted-inference provider.
func New(apiKey, defaultModel string, params config.ModelParams, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		defaultModel: defaultModel,
		params:       params,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return provider.NameHF }

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
	TopP         float32 `json:"top_p,omitempty"`
}

type inferenceResult struct {
	GeneratedText string `json:"generated_text"`
}

// Generate executes one inference call, or echoes a stub in degraded mode.
func (p *Provider) Generate(ctx context.Context, req *domain.Request) *domain.ProviderResult {
	if p.apiKey == "" {
		echo := req.Prompt
		if len(echo) > stubEchoLimit {
			echo = echo[:stubEchoLimit]
		}
		return domain.Success(stubPrefix + echo)
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.params.MaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.params.Temperature
	}

	payload := &inferenceRequest{
		Inputs: req.Prompt,
		Parameters: inferenceParameters{
			MaxNewTokens: maxTokens,
			Temperature:  temperature,
			TopP:         p.params.TopP,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "hf: marshal request: %v", err)
	}

	endpoint := fmt.Sprintf("%s/%s", p.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "hf: create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "hf: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "hf: read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Failure(domain.ErrProviderCallFailed, "hf: API error (status %d)", resp.StatusCode)
	}

	// Inference responses vary by task; normalize to text.
	var results []inferenceResult
	if err := json.Unmarshal(respBody, &results); err == nil && len(results) > 0 && results[0].GeneratedText != "" {
		text := results[0].GeneratedText
		// Text-generation models echo the prompt before the completion.
		text = strings.TrimSpace(strings.TrimPrefix(text, req.Prompt))
		return domain.Success(text)
	}
	return domain.Success(string(respBody))
}

// Degraded reports whether the provider is running without a credential.
func (p *Provider) Degraded() bool { return p.apiKey == "" }

// RegisterProviderFactory registers the hosted-inference factory with the
// provider registry.
func RegisterProviderFactory() {
	if provider.IsRegistered(provider.NameHF) {
		return
	}
	provider.RegisterFactory(provider.Factory{
		Type:        provider.NameHF,
		Description: "Hugging Face hosted-inference provider with echo-stub degraded mode",
		Create: func(cfg config.ProviderConfig, params config.ModelParams) provider.Provider {
			var opts []ProviderOption
			if cfg.BaseURL != "" {
				opts = append(opts, WithBaseURL(cfg.BaseURL))
			}
			return New(cfg.APIKey, cfg.Model, params, opts...)
		},
	})
}
