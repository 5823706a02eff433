package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const duckDuckGoLiteURL = "https://lite.duckduckgo.com/lite/"

// DuckDuckGoEngine scrapes the DuckDuckGo lite HTML endpoint. It needs no key.
type DuckDuckGoEngine struct {
	name      string
	baseURL   string
	userAgent string
	region    string
	enabled   bool
	priority  int
	client    *http.Client
}

func NewDuckDuckGoEngine(config EngineConfig) (Engine, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = duckDuckGoLiteURL
	}
	return &DuckDuckGoEngine{
		name:      config.Name,
		baseURL:   baseURL,
		userAgent: optionString(config.Options, "user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		region:    optionString(config.Options, "region", ""),
		enabled:   config.Enabled,
		priority:  config.Priority,
		client:    &http.Client{Timeout: 20 * time.Second},
	}, nil
}

func (e *DuckDuckGoEngine) Name() string    { return e.name }
func (e *DuckDuckGoEngine) Type() string    { return "duckduckgo" }
func (e *DuckDuckGoEngine) IsEnabled() bool { return e.enabled }
func (e *DuckDuckGoEngine) Priority() int   { return e.priority }

func (e *DuckDuckGoEngine) Search(ctx context.Context, query string, limit int) (*Response, error) {
	start := time.Now()

	form := url.Values{}
	form.Set("q", query)
	if e.region != "" {
		form.Set("kl", e.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned HTTP %d", resp.StatusCode)
	}

	results, err := parseLiteResults(io.LimitReader(resp.Body, 2<<20), limit)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range results {
		results[i].Source = e.name
		results[i].RetrievedAt = now
	}

	return &Response{Query: query, Results: results, Engine: e.name, Duration: time.Since(start)}, nil
}

// parseLiteResults pairs each result link with the snippet row that follows it.
func parseLiteResults(r io.Reader, limit int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo html: %w", err)
	}

	var results []Result
	doc.Find("a.result-link").Each(func(_ int, link *goquery.Selection) {
		if limit > 0 && len(results) >= limit {
			return
		}
		href, _ := link.Attr("href")
		snippet := link.Closest("tr").NextAllFiltered("tr").First().Find("td.result-snippet")
		results = append(results, Result{
			Title:       strings.TrimSpace(link.Text()),
			Description: strings.TrimSpace(snippet.Text()),
			URL:         unwrapRedirect(href),
		})
	})
	return results, nil
}

// unwrapRedirect resolves //duckduckgo.com/l/?uddg=<target> links.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}
