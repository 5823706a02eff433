package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string

	// ErrMissingAPIKey is returned by Validate when no inference API key is set.
	ErrMissingAPIKey = errors.New("no API key configured for the inference provider")
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	AI      AIConfig      `yaml:"ai"`
	Search  SearchConfig  `yaml:"search"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Prompt  PromptConfig  `yaml:"prompt"`
	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
}

// AIConfig selects the inference provider and model.
type AIConfig struct {
	Provider          string `yaml:"provider"` // "gemini", "openai", "anthropic" or an OpenAI-compatible preset
	Model             string `yaml:"model"`
	APIKey            string `yaml:"api_key,omitempty"`
	BaseURL           string `yaml:"base_url,omitempty"`
	MaxTokens         int    `yaml:"max_tokens,omitempty"`
	SystemInstruction string `yaml:"system_instruction,omitempty"`
}

// SearchEngineConfig configures a single search engine.
type SearchEngineConfig struct {
	Name     string                 `yaml:"name"`
	Type     string                 `yaml:"type"`
	APIKey   string                 `yaml:"api_key,omitempty"`
	BaseURL  string                 `yaml:"base_url,omitempty"`
	Enabled  bool                   `yaml:"enabled"`
	Priority int                    `yaml:"priority"`
	Options  map[string]interface{} `yaml:"options,omitempty"`
}

// SearchConfig holds the engine list and how many results to request.
type SearchConfig struct {
	ResultCount int                  `yaml:"result_count"`
	Engines     []SearchEngineConfig `yaml:"engines"`
}

type FetchConfig struct {
	Mode            string `yaml:"mode"` // "http" or "browser"
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	WebsitesToFetch int    `yaml:"websites_to_fetch"`
	Workers         int    `yaml:"workers,omitempty"`
	// EarlyStop stops collecting once this many fetches succeeded. 0 disables it.
	EarlyStop      int    `yaml:"early_stop,omitempty"`
	UserAgent      string `yaml:"user_agent,omitempty"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes,omitempty"`
	SSRFProtection bool   `yaml:"ssrf_protection"`
}

// Timeout returns the per-fetch timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

type PromptConfig struct {
	ContentMaxLength int  `yaml:"content_max_length"`
	HistoryWindow    int  `yaml:"history_window"`
	IncludeFailures  bool `yaml:"include_failures"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SQLitePath string `yaml:"sqlite_path,omitempty"`
}

type OutputConfig struct {
	Color string `yaml:"color,omitempty"` // "auto", "always", "never"
}

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:  "gemini",
			MaxTokens: 4096,
		},
		Search: SearchConfig{
			ResultCount: 10,
			Engines: []SearchEngineConfig{
				{
					Name:     "duckduckgo",
					Type:     "duckduckgo",
					Enabled:  true,
					Priority: 1,
				},
				{
					Name:     "brave",
					Type:     "brave",
					Enabled:  true,
					Priority: 2,
				},
				{
					Name:     "tavily",
					Type:     "tavily",
					Enabled:  true,
					Priority: 3,
				},
			},
		},
		Fetch: FetchConfig{
			Mode:            "http",
			TimeoutSeconds:  10,
			WebsitesToFetch: 3,
			Workers:         3,
			UserAgent:       DefaultUserAgent,
			MaxBodyBytes:    5 * 1024 * 1024,
			SSRFProtection:  true,
		},
		Prompt: PromptConfig{
			ContentMaxLength: 2000,
			HistoryWindow:    5,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		Audit: AuditConfig{
			SQLitePath: filepath.Join(".perplex", "audit.db"),
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}

func ConfigDir() string {
	return filepath.Join(getExecutableDir(), ".perplex")
}

func ConfigPath() string {
	return filepath.Join(getExecutableDir(), ".perplex.yaml")
}

// Load reads the config from the default path and applies environment overrides.
func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath reads the config at path. A missing file yields the defaults.
// A .env file in the working directory is loaded first; existing variables win.
func LoadFromPath(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if strings.TrimSpace(cfg.AI.Model) == "" {
		cfg.AI.Model = DefaultModel(cfg.AI.Provider)
	}
	return cfg, nil
}

// providerKeyEnv maps a provider to the environment variable holding its key.
var providerKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
	"qwen":      "DASHSCOPE_API_KEY",
	"kimi":      "MOONSHOT_API_KEY",
}

var providerAliases = map[string]string{
	"google":   "gemini",
	"claude":   "anthropic",
	"gpt":      "openai",
	"chatgpt":  "openai",
	"moonshot": "kimi",
	"tongyi":   "qwen",
	"qianwen":  "qwen",
}

// providerModels holds the model used when ai.model is left empty.
var providerModels = map[string]string{
	"gemini":    "gemini-2.0-flash-lite",
	"anthropic": "claude-3-5-haiku-latest",
	"openai":    "gpt-4o-mini",
	"deepseek":  "deepseek-chat",
	"qwen":      "qwen-plus",
	"kimi":      "moonshot-v1-8k",
}

// CanonicalProvider lowercases a provider name and resolves aliases such as "claude".
func CanonicalProvider(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if v, ok := providerAliases[name]; ok {
		return v
	}
	return name
}

// DefaultModel returns the preset model for a provider, or "" when it has none.
func DefaultModel(provider string) string {
	return providerModels[CanonicalProvider(provider)]
}

// APIKeyEnv returns the environment variable consulted for the provider's key.
func APIKeyEnv(provider string) string {
	if env, ok := providerKeyEnv[CanonicalProvider(provider)]; ok {
		return env
	}
	return "PERPLEX_API_KEY"
}

// applyEnv applies environment overrides. Priority: environment > config file > default.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PERPLEX_PROVIDER")); v != "" {
		c.AI.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("PERPLEX_MODEL")); v != "" {
		c.AI.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("PERPLEX_API_KEY")); v != "" {
		c.AI.APIKey = v
	} else if v := strings.TrimSpace(os.Getenv(APIKeyEnv(c.AI.Provider))); v != "" {
		c.AI.APIKey = v
	}

	for i := range c.Search.Engines {
		var env string
		switch c.Search.Engines[i].Type {
		case "brave":
			env = "BRAVE_API_KEY"
		case "tavily":
			env = "TAVILY_API_KEY"
		default:
			continue
		}
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			c.Search.Engines[i].APIKey = v
		}
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.Output.Color = "never"
	}
}

// Validate checks the values that the pipeline relies on. It is called once at startup.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AI.Provider) == "" {
		errs = append(errs, errors.New("ai.provider is required"))
	}
	if strings.TrimSpace(c.AI.Model) == "" {
		errs = append(errs, fmt.Errorf("ai.model is required for provider %q", c.AI.Provider))
	}
	if strings.TrimSpace(c.AI.APIKey) == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if c.Search.ResultCount <= 0 {
		errs = append(errs, fmt.Errorf("search.result_count must be positive, got %d", c.Search.ResultCount))
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout_seconds must be positive, got %d", c.Fetch.TimeoutSeconds))
	}
	if c.Fetch.WebsitesToFetch < 0 {
		errs = append(errs, fmt.Errorf("fetch.websites_to_fetch must not be negative, got %d", c.Fetch.WebsitesToFetch))
	}
	if c.Fetch.Workers < 0 {
		errs = append(errs, fmt.Errorf("fetch.workers must not be negative, got %d", c.Fetch.Workers))
	}
	if c.Fetch.EarlyStop < 0 {
		errs = append(errs, fmt.Errorf("fetch.early_stop must not be negative, got %d", c.Fetch.EarlyStop))
	}
	switch c.Fetch.Mode {
	case "", "http", "browser":
	default:
		errs = append(errs, fmt.Errorf("fetch.mode must be http or browser, got %q", c.Fetch.Mode))
	}
	if c.Prompt.ContentMaxLength <= 0 {
		errs = append(errs, fmt.Errorf("prompt.content_max_length must be positive, got %d", c.Prompt.ContentMaxLength))
	}
	if c.Prompt.HistoryWindow < 0 {
		errs = append(errs, fmt.Errorf("prompt.history_window must not be negative, got %d", c.Prompt.HistoryWindow))
	}
	switch c.Output.Color {
	case "", "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("output.color must be auto, always or never, got %q", c.Output.Color))
	}
	return errors.Join(errs...)
}

// Masked returns a copy with secrets shortened for display.
func (c Config) Masked() Config {
	c.AI.APIKey = maskSecret(c.AI.APIKey)
	engines := make([]SearchEngineConfig, len(c.Search.Engines))
	copy(engines, c.Search.Engines)
	for i := range engines {
		engines[i].APIKey = maskSecret(engines[i].APIKey)
	}
	c.Search.Engines = engines
	return c
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ResolvePath makes p absolute relative to the executable directory.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(getExecutableDir(), p)
}
