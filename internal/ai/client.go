package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kayz/perplex/internal/logger"
)

// EmptyResponse is shown when the model returned no text.
const EmptyResponse = "⚠️ AI response was empty. Please try again."

// Answer is the outcome of one inference call. Text is always printable:
// on failure it holds a diagnostic placeholder and Err is set.
type Answer struct {
	Text     string
	Err      error
	Duration time.Duration
}

func (a Answer) OK() bool { return a.Err == nil }

// Client wraps a Provider so that inference never fails outright.
type Client struct {
	provider  Provider
	model     string
	maxTokens int
}

func NewClient(provider Provider, model string, maxTokens int) *Client {
	return &Client{provider: provider, model: model, maxTokens: maxTokens}
}

func (c *Client) Provider() Provider { return c.provider }

func (c *Client) Model() string { return c.model }

func (c *Client) Generate(ctx context.Context, system, prompt string) Answer {
	start := time.Now()
	text, err := c.provider.Generate(ctx, GenerateRequest{
		Model:     c.model,
		System:    system,
		Prompt:    prompt,
		MaxTokens: c.maxTokens,
	})
	elapsed := time.Since(start)

	if err != nil {
		logger.Warn("Inference via %s failed after %v: %v", c.provider.Name(), elapsed, err)
		return Answer{Text: fmt.Sprintf("🤖 AI response error: %v ⚠️", err), Err: err, Duration: elapsed}
	}
	if strings.TrimSpace(text) == "" {
		logger.Warn("Inference via %s returned an empty response", c.provider.Name())
		return Answer{Text: EmptyResponse, Err: errEmpty, Duration: elapsed}
	}
	logger.Debug("Inference via %s (%s) took %v, %d chars", c.provider.Name(), c.model, elapsed, len(text))
	return Answer{Text: text, Duration: elapsed}
}

var errEmpty = errors.New("empty response")
