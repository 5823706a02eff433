package fetch

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/semaphore"

	"github.com/kayz/perplex/internal/config"
	"github.com/kayz/perplex/internal/logger"
)

// Coordinator fetches a batch of targets concurrently.
type Coordinator struct {
	Fetcher Fetcher
	// Workers bounds concurrent fetches. Zero means one per target.
	Workers int
	// EarlyStop ends collection once this many fetches succeeded. Zero waits for all.
	EarlyStop int
}

// New builds the fetcher selected by cfg.Mode. The closer releases a browser if one was started.
func New(cfg config.FetchConfig) (Fetcher, io.Closer) {
	extractor := NewReadabilityExtractor()
	if cfg.Mode == "browser" {
		f := NewBrowserFetcher(cfg, extractor)
		return f, f
	}
	return NewHTTPFetcher(cfg, extractor), nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FetchAll returns one outcome per target in completion order, or fewer when
// EarlyStop cut collection short. It never returns an error.
func (c *Coordinator) FetchAll(ctx context.Context, targets []Target) []Outcome {
	if len(targets) == 0 {
		return nil
	}

	workers := c.Workers
	if workers <= 0 || workers > len(targets) {
		workers = len(targets)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(workers))
	results := make(chan Outcome, len(targets))

	for _, t := range targets {
		go func(t Target) {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- Outcome{Index: t.Index, URL: t.URL, Kind: NetworkError, Reason: ReasonInterrupted}
				return
			}
			defer sem.Release(1)
			results <- c.fetchOne(ctx, t)
		}(t)
	}

	outcomes := make([]Outcome, 0, len(targets))
	successes := 0
	for range targets {
		o := <-results
		outcomes = append(outcomes, o)
		if !o.OK() {
			logger.Debug("Fetch %s failed (%s): %s", o.URL, o.Kind, o.Reason)
			continue
		}
		successes++
		if c.EarlyStop > 0 && successes >= c.EarlyStop {
			logger.Debug("Early stop after %d successful fetches", successes)
			break
		}
	}
	return outcomes
}

func (c *Coordinator) fetchOne(ctx context.Context, t Target) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Fetch of %s panicked: %v", t.URL, r)
			out = Outcome{Index: t.Index, URL: t.URL, Kind: NetworkError, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	out = c.Fetcher.Fetch(ctx, t.URL)
	out.Index = t.Index
	out.URL = t.URL
	return out
}
