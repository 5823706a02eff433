package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"PERPLEX_PROVIDER", "PERPLEX_MODEL", "PERPLEX_API_KEY",
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
		"BRAVE_API_KEY", "TAVILY_API_KEY", "NO_COLOR",
	} {
		t.Setenv(env, "")
		_ = os.Unsetenv(env)
	}
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Search.ResultCount != 10 {
		t.Fatalf("expected default result_count 10, got %d", cfg.Search.ResultCount)
	}
	if cfg.Fetch.TimeoutSeconds != 10 || cfg.Fetch.WebsitesToFetch != 3 {
		t.Fatalf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if cfg.Prompt.ContentMaxLength != 2000 || cfg.Prompt.HistoryWindow != 5 {
		t.Fatalf("unexpected prompt defaults: %+v", cfg.Prompt)
	}
	if cfg.AI.Provider != "gemini" {
		t.Fatalf("expected gemini default provider, got %q", cfg.AI.Provider)
	}
}

func TestLoadFromPathReadsFileAndEnvWins(t *testing.T) {
	clearKeyEnv(t)

	cfgPath := filepath.Join(t.TempDir(), ".perplex.yaml")
	content := `ai:
  provider: openai
  model: gpt-4o-mini
  api_key: file-key
search:
  result_count: 6
fetch:
  timeout_seconds: 4
  websites_to_fetch: 2
  early_stop: 1
prompt:
  content_max_length: 500
  history_window: 3
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("PERPLEX_MODEL", "gpt-4o")

	cfg, err := LoadFromPath(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AI.APIKey != "env-key" {
		t.Fatalf("expected env key to override file key, got %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "gpt-4o" {
		t.Fatalf("expected PERPLEX_MODEL override, got %q", cfg.AI.Model)
	}
	if cfg.Search.ResultCount != 6 || cfg.Fetch.EarlyStop != 1 || cfg.Prompt.HistoryWindow != 3 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Fetch.Timeout().Seconds() != 4 {
		t.Fatalf("unexpected timeout: %v", cfg.Fetch.Timeout())
	}
}

func TestModelFollowsProvider(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		provider string
		want     string
	}{
		{name: "default", want: "gemini-2.0-flash-lite"},
		{name: "provider only", yaml: "ai:\n  provider: openai\n", want: "gpt-4o-mini"},
		{name: "alias", yaml: "ai:\n  provider: claude\n", want: "claude-3-5-haiku-latest"},
		{name: "env provider", provider: "anthropic", want: "claude-3-5-haiku-latest"},
		{name: "explicit model", yaml: "ai:\n  provider: deepseek\n  model: deepseek-reasoner\n", want: "deepseek-reasoner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearKeyEnv(t)
			if tt.provider != "" {
				t.Setenv("PERPLEX_PROVIDER", tt.provider)
			}
			path := filepath.Join(t.TempDir(), ".perplex.yaml")
			if tt.yaml != "" {
				if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
					t.Fatalf("write config: %v", err)
				}
			}
			cfg, err := LoadFromPath(path)
			if err != nil {
				t.Fatalf("load config: %v", err)
			}
			if cfg.AI.Model != tt.want {
				t.Fatalf("expected model %q for provider %q, got %q", tt.want, cfg.AI.Provider, cfg.AI.Model)
			}
		})
	}
}

func TestUnknownProviderNeedsModel(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), ".perplex.yaml")
	content := "ai:\n  provider: local\n  base_url: http://localhost:11434/v1\n  api_key: k\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "ai.model") {
		t.Fatalf("expected ai.model error, got %v", err)
	}
}

func TestAPIKeyEnvResolvesAliases(t *testing.T) {
	for provider, want := range map[string]string{
		"gemini":  "GEMINI_API_KEY",
		"google":  "GEMINI_API_KEY",
		"Claude":  "ANTHROPIC_API_KEY",
		"chatgpt": "OPENAI_API_KEY",
		"tongyi":  "DASHSCOPE_API_KEY",
		"local":   "PERPLEX_API_KEY",
	} {
		if got := APIKeyEnv(provider); got != want {
			t.Fatalf("APIKeyEnv(%q) = %q, want %q", provider, got, want)
		}
	}
}

func TestAliasProviderKeyFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("PERPLEX_PROVIDER", "google")
	t.Setenv("GEMINI_API_KEY", "gem-key")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AI.APIKey != "gem-key" {
		t.Fatalf("expected GEMINI_API_KEY for provider google, got %q", cfg.AI.APIKey)
	}
}

func TestSearchEngineKeysFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("BRAVE_API_KEY", "brave-key")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	for _, e := range cfg.Search.Engines {
		if e.Type == "brave" && e.APIKey != "brave-key" {
			t.Fatalf("expected brave key from env, got %q", e.APIKey)
		}
		if e.Type == "tavily" && e.APIKey != "" {
			t.Fatalf("tavily key should be empty, got %q", e.APIKey)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	cfg.AI.APIKey = "k"
	cfg.AI.Model = DefaultModel(cfg.AI.Provider)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults with key to validate, got %v", err)
	}

	cfg.Fetch.Mode = "carrier-pigeon"
	cfg.Prompt.ContentMaxLength = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	if !strings.Contains(err.Error(), "fetch.mode") || !strings.Contains(err.Error(), "content_max_length") {
		t.Fatalf("expected both problems reported, got %v", err)
	}
}

func TestMaskedDoesNotTouchOriginal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AI.APIKey = "abcdefghijklmnop"
	cfg.Search.Engines[1].APIKey = "brave-secret-key"

	masked := cfg.Masked()
	if masked.AI.APIKey != "abcd****mnop" {
		t.Fatalf("unexpected masked key: %q", masked.AI.APIKey)
	}
	if cfg.Search.Engines[1].APIKey != "brave-secret-key" {
		t.Fatalf("masking must not mutate the original engines")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), "nested", ".perplex.yaml")
	cfg := DefaultConfig()
	cfg.Prompt.HistoryWindow = 2
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Prompt.HistoryWindow != 2 {
		t.Fatalf("expected saved history window, got %d", loaded.Prompt.HistoryWindow)
	}
}
