package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type TavilyEngine struct {
	name     string
	apiKey   string
	baseURL  string
	depth    string
	enabled  bool
	priority int
	client   *http.Client
}

func NewTavilyEngine(config EngineConfig) (Engine, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}

	return &TavilyEngine{
		name:     config.Name,
		apiKey:   config.APIKey,
		baseURL:  baseURL,
		depth:    optionString(config.Options, "search_depth", "basic"),
		enabled:  config.Enabled,
		priority: config.Priority,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (e *TavilyEngine) Name() string    { return e.name }
func (e *TavilyEngine) Type() string    { return "tavily" }
func (e *TavilyEngine) IsEnabled() bool { return e.enabled }
func (e *TavilyEngine) Priority() int   { return e.priority }

func (e *TavilyEngine) Search(ctx context.Context, query string, limit int) (*Response, error) {
	start := time.Now()

	payload, err := json.Marshal(map[string]interface{}{
		"api_key":        e.apiKey,
		"query":          query,
		"search_depth":   e.depth,
		"include_answer": false,
		"include_images": false,
		"max_results":    limit,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "perplex/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned HTTP %d", resp.StatusCode)
	}

	var apiResponse struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	now := time.Now()
	results := make([]Result, 0, len(apiResponse.Results))
	for _, r := range apiResponse.Results {
		results = append(results, Result{
			Title:       r.Title,
			Description: r.Content,
			URL:         r.URL,
			Source:      e.name,
			Score:       r.Score,
			RetrievedAt: now,
		})
	}

	return &Response{
		Query:    query,
		Results:  results,
		Engine:   e.name,
		Duration: time.Since(start),
	}, nil
}
