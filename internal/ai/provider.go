// Package ai sends assembled prompts to a language model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kayz/perplex/internal/config"
)

// ErrNoAPIKey is returned by provider constructors called without a key.
var ErrNoAPIKey = errors.New("API key is required")

// GenerateRequest is a single-shot completion: one system instruction, one user prompt.
type GenerateRequest struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int
}

type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// openAICompatible maps providers that speak the OpenAI chat completions API to their base URL.
var openAICompatible = map[string]string{
	"openai":   "https://api.openai.com/v1",
	"deepseek": "https://api.deepseek.com/v1",
	"qwen":     "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"kimi":     "https://api.moonshot.cn/v1",
}

// Canonical resolves provider aliases.
func Canonical(name string) string {
	return config.CanonicalProvider(name)
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	name := Canonical(cfg.Provider)
	switch name {
	case "gemini":
		return NewGeminiProvider(ctx, GeminiConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	}
	if preset, ok := openAICompatible[name]; ok {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = preset
		}
		return NewOpenAIProvider(OpenAIConfig{Name: name, APIKey: cfg.APIKey, BaseURL: baseURL})
	}
	if cfg.BaseURL != "" {
		// any other name is treated as an OpenAI-compatible endpoint
		return NewOpenAIProvider(OpenAIConfig{Name: name, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	}
	return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
}

// DefaultModel returns the preset model for a provider, or "".
func DefaultModel(provider string) string {
	return config.DefaultModel(provider)
}
