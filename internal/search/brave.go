package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// BraveEngine queries the Brave web search API.
type BraveEngine struct {
	name     string
	apiKey   string
	baseURL  string
	enabled  bool
	priority int
	client   *http.Client
}

func NewBraveEngine(config EngineConfig) (Engine, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.search.brave.com/res/v1/web/search"
	}
	return &BraveEngine{
		name:     config.Name,
		apiKey:   config.APIKey,
		baseURL:  baseURL,
		enabled:  config.Enabled,
		priority: config.Priority,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (e *BraveEngine) Name() string    { return e.name }
func (e *BraveEngine) Type() string    { return "brave" }
func (e *BraveEngine) IsEnabled() bool { return e.enabled }
func (e *BraveEngine) Priority() int   { return e.priority }

func (e *BraveEngine) Search(ctx context.Context, query string, limit int) (*Response, error) {
	start := time.Now()

	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		// the API caps count at 20
		if limit > 20 {
			limit = 20
		}
		params.Set("count", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", e.apiKey)

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
		return nil, fmt.Errorf("brave returned HTTP %d", resp.StatusCode)
	}

	var data struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	now := time.Now()
	results := make([]Result, 0, len(data.Web.Results))
	for _, r := range data.Web.Results {
		results = append(results, Result{
			Title:       r.Title,
			Description: r.Description,
			URL:         r.URL,
			Source:      e.name,
			RetrievedAt: now,
		})
	}

	return &Response{Query: query, Results: results, Engine: e.name, Duration: time.Since(start)}, nil
}
