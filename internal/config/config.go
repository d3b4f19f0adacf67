// Package config loads service configuration from an optional YAML file and
// environment variables, with sane defaults for credential-free operation.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Providers ProvidersConfig `koanf:"providers"`
	Domains   DomainsConfig   `koanf:"domains"`
	Session   SessionConfig   `koanf:"session"`
	Search    SearchConfig    `koanf:"search"`
	Model     ModelParams     `koanf:"model"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// ProvidersConfig holds per-backend credentials and default models.
// An empty APIKey marks that provider unavailable; the Hugging Face
// provider instead degrades to a stub echo backend.
type ProvidersConfig struct {
	OpenAI ProviderConfig `koanf:"openai"`
	Groq   ProviderConfig `koanf:"groq"`
	Gemini ProviderConfig `koanf:"gemini"`
	HF     ProviderConfig `koanf:"hf"`
}

type ProviderConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

// DomainsConfig enumerates the survey domains and optional per-domain
// model overrides for the hosted-inference backend.
type DomainsConfig struct {
	Enabled   []string          `koanf:"enabled"`
	Overrides map[string]string `koanf:"overrides"`
}

// SessionConfig bounds session retention. Zero values disable eviction.
type SessionConfig struct {
	MaxTurns int    `koanf:"max_turns"`
	MaxAge   string `koanf:"max_age"` // duration string like "24h"
}

type SearchConfig struct {
	MaxResults int `koanf:"max_results"`
}

// ModelParams are the default sampling parameters sent with provider calls.
type ModelParams struct {
	Temperature float32 `koanf:"temperature"`
	TopP        float32 `koanf:"top_p"`
	MaxTokens   int     `koanf:"max_tokens"`
}

// Regions groups survey regions for two-level selection.
var Regions = map[string][]string{
	"north":     {"Delhi", "Haryana", "Punjab", "Uttar Pradesh", "Uttarakhand", "Himachal Pradesh", "Jammu & Kashmir"},
	"south":     {"Andhra Pradesh", "Karnataka", "Kerala", "Tamil Nadu", "Telangana"},
	"east":      {"Bihar", "Jharkhand", "Odisha", "West Bengal"},
	"west":      {"Gujarat", "Maharashtra", "Rajasthan", "Madhya Pradesh"},
	"northeast": {"Assam", "Arunachal Pradesh", "Manipur", "Meghalaya", "Mizoram", "Nagaland", "Tripura", "Sikkim"},
	"central":   {"Chhattisgarh", "Madhya Pradesh"},
}

// KnownRegion reports whether region appears in the taxonomy, either as a
// group name or a specific region.
func KnownRegion(region string) bool {
	if _, ok := Regions[strings.ToLower(region)]; ok {
		return true
	}
	for _, members := range Regions {
		for _, m := range members {
			if strings.EqualFold(m, region) {
				return true
			}
		}
	}
	return false
}

const defaultHFModel = "mistralai/Mistral-7B-Instruct-v0.2"

// Load reads configuration from path (if non-empty and present) and the
// environment. Environment keys use the SURVEYD_ prefix with double
// underscore as the section separator (SURVEYD_SERVER__PORT=9090); plain
// credential variables (OPENAI_API_KEY etc.) are also honored.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	setDefaults(k)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider("SURVEYD_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "SURVEYD_")), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	loadCredentialEnv(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	k.Set("server.port", 8080)
	k.Set("storage.type", "memory")
	k.Set("storage.sqlite.path", "./data/surveyd.db")
	k.Set("providers.openai.model", "gpt-4o-mini")
	k.Set("providers.groq.model", "llama3-8b-8192")
	k.Set("providers.gemini.model", "gemini-1.5-pro")
	k.Set("providers.hf.model", defaultHFModel)
	k.Set("domains.enabled", []string{"agriculture", "education", "healthcare"})
	k.Set("search.max_results", 5)
	k.Set("model.temperature", 0.7)
	k.Set("model.top_p", 0.9)
	k.Set("model.max_tokens", 1024)
}

// loadCredentialEnv maps the conventional plain credential variables onto
// config keys. HF accepts several historical names; first match wins.
func loadCredentialEnv(k *koanf.Koanf) {
	direct := map[string]string{
		"OPENAI_API_KEY": "providers.openai.api_key",
		"GROQ_API_KEY":   "providers.groq.api_key",
		"GEMINI_API_KEY": "providers.gemini.api_key",
	}
	for envName, key := range direct {
		if v := os.Getenv(envName); v != "" {
			k.Set(key, v)
		}
	}
	for _, envName := range []string{"HF_API_KEY", "HF_TOKEN", "HUGGINGFACE_API_KEY", "HUGGINGFACEHUB_API_TOKEN"} {
		if v := os.Getenv(envName); v != "" {
			k.Set("providers.hf.api_key", v)
			break
		}
	}
	if v := os.Getenv("HF_MODEL"); v != "" {
		k.Set("providers.hf.model", v)
	}
}
