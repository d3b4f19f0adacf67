// Package gemini implements the Google Gemini provider. Gemini has no
// JSON output mode here; the normalizer parses JSON out of its prose.
package gemini

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
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 120 * time.Second
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

// Provider implements provider.Provider against the Gemini generateContent
// API.
type Provider struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	defaultModel string
	params       config.ModelParams
}

// New creates a new Gemini provider.
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

func (p *Provider) Name() string { return provider.NameGemini }

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	TopP            float32 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate executes one generateContent call.
func (p *Provider) Generate(ctx context.Context, req *domain.Request) *domain.ProviderResult {
	if p.apiKey == "" {
		return domain.Failure(domain.ErrProviderUnavailable, "GEMINI_API_KEY missing")
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	payload := &generateContentRequest{
		Contents: []content{{Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:     orDefault32(req.Temperature, p.params.Temperature),
			TopP:            orDefault32(req.TopP, p.params.TopP),
			MaxOutputTokens: orDefaultInt(req.MaxTokens, p.params.MaxTokens),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "gemini: marshal request: %v", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, url.PathEscape(model), url.QueryEscape(p.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "gemini: create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "gemini: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "gemini: read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Failure(domain.ErrProviderCallFailed, "gemini: API error (status %d)", resp.StatusCode)
	}

	var result generateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return domain.Failure(domain.ErrProviderCallFailed, "gemini: unmarshal response: %v", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		// Some responses carry no candidate text; hand the raw body to
		// the normalizer rather than failing.
		return domain.Success(string(respBody))
	}

	return domain.Success(strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text))
}

func orDefault32(v, def float32) float32 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// RegisterProviderFactory registers the Gemini factory with the provider
// registry.
func RegisterProviderFactory() {
	if provider.IsRegistered(provider.NameGemini) {
		return
	}
	provider.RegisterFactory(provider.Factory{
		Type:        provider.NameGemini,
		Description: "Google Gemini generateContent provider",
		Create: func(cfg config.ProviderConfig, params config.ModelParams) provider.Provider {
			var opts []ProviderOption
			if cfg.BaseURL != "" {
				opts = append(opts, WithBaseURL(cfg.BaseURL))
			}
			return New(cfg.APIKey, cfg.Model, params, opts...)
		},
	})
}
