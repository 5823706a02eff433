package search

import (
	"context"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/kayz/perplex/internal/logger"
)

// Searcher is anything that can run a web query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*Response, error)
}

// Notifier receives short user-facing notices such as search failures.
type Notifier func(format string, args ...any)

// Adapter turns a Searcher into an infallible call returning clean results.
// Results with an empty title, description or URL are dropped and at most
// limit results are returned. Failures are reported and yield an empty list.
type Adapter struct {
	searcher Searcher
	notify   Notifier
	policy   *bluemonday.Policy
}

func NewAdapter(searcher Searcher, notify Notifier) *Adapter {
	if notify == nil {
		notify = func(string, ...any) {}
	}
	return &Adapter{
		searcher: searcher,
		notify:   notify,
		policy:   bluemonday.StrictPolicy(),
	}
}

func (a *Adapter) Search(ctx context.Context, query string, limit int) []Result {
	if limit <= 0 || a.searcher == nil {
		return nil
	}

	resp, err := a.searcher.Search(ctx, query, limit)
	if err != nil {
		logger.Warn("Search failed for %q: %v", query, err)
		a.notify("⚠️ Search error: %v", err)
		return nil
	}
	if resp == nil {
		return nil
	}

	results := make([]Result, 0, min(limit, len(resp.Results)))
	for _, r := range resp.Results {
		r.Title = a.clean(r.Title)
		r.Description = a.clean(r.Description)
		r.URL = strings.TrimSpace(r.URL)
		if r.Title == "" || r.Description == "" || r.URL == "" {
			continue
		}
		results = append(results, r)
		if len(results) == limit {
			break
		}
	}
	return results
}

// clean strips markup from engine-provided text.
func (a *Adapter) clean(s string) string {
	s = a.policy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
