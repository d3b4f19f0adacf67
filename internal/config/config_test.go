package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %q, want memory", cfg.Storage.Type)
	}
	if cfg.Providers.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("OpenAI.Model = %q", cfg.Providers.OpenAI.Model)
	}
	if cfg.Providers.HF.Model != "mistralai/Mistral-7B-Instruct-v0.2" {
		t.Errorf("HF.Model = %q", cfg.Providers.HF.Model)
	}
	if len(cfg.Domains.Enabled) != 3 {
		t.Errorf("Domains.Enabled = %v", cfg.Domains.Enabled)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("Search.MaxResults = %d", cfg.Search.MaxResults)
	}
	if cfg.Model.Temperature != 0.7 {
		t.Errorf("Model.Temperature = %v", cfg.Model.Temperature)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SURVEYD_SERVER__PORT", "9090")
	t.Setenv("SURVEYD_STORAGE__TYPE", "sqlite")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("Storage.Type = %q, want sqlite", cfg.Storage.Type)
	}
}

func TestLoadCredentialEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HF_TOKEN", "hf-test")
	t.Setenv("HF_MODEL", "google/flan-t5-xl")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-test" {
		t.Errorf("OpenAI.APIKey = %q", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Providers.HF.APIKey != "hf-test" {
		t.Errorf("HF.APIKey = %q", cfg.Providers.HF.APIKey)
	}
	if cfg.Providers.HF.Model != "google/flan-t5-xl" {
		t.Errorf("HF.Model = %q", cfg.Providers.HF.Model)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  port: 7070
domains:
  overrides:
    agriculture: some/custom-model
session:
  max_turns: 20
  max_age: 24h
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Domains.Overrides["agriculture"] != "some/custom-model" {
		t.Errorf("Overrides = %v", cfg.Domains.Overrides)
	}
	if cfg.Session.MaxTurns != 20 || cfg.Session.MaxAge != "24h" {
		t.Errorf("Session = %+v", cfg.Session)
	}
	// File values must not clobber unrelated defaults.
	if cfg.Providers.Groq.Model != "llama3-8b-8192" {
		t.Errorf("Groq.Model = %q", cfg.Providers.Groq.Model)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestKnownRegion(t *testing.T) {
	tests := []struct {
		region string
		want   bool
	}{
		{"north", true},
		{"NORTH", true},
		{"Punjab", true},
		{"kerala", true},
		{"atlantis", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := KnownRegion(tt.region); got != tt.want {
			t.Errorf("KnownRegion(%q) = %v, want %v", tt.region, got, tt.want)
		}
	}
}
