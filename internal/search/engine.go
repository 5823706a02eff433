package search

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned by factories of engines that need a key.
var ErrMissingAPIKey = errors.New("search engine requires an api key")

type Engine interface {
	Name() string
	Type() string
	Search(ctx context.Context, query string, limit int) (*Response, error)
	IsEnabled() bool
	Priority() int
}

type EngineFactory func(config EngineConfig) (Engine, error)

type EngineConfig struct {
	Name     string
	Type     string
	APIKey   string
	BaseURL  string
	Enabled  bool
	Priority int
	Options  map[string]interface{}
}

func optionString(opts map[string]interface{}, key, fallback string) string {
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
