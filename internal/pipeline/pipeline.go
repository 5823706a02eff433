// Package pipeline runs one research turn (search, fetch, assemble, infer)
// and drives the interactive follow-up session around it.
package pipeline

import (
	"context"
	"sort"

	"github.com/kayz/perplex/internal/ai"
	"github.com/kayz/perplex/internal/conversation"
	"github.com/kayz/perplex/internal/fetch"
	"github.com/kayz/perplex/internal/logger"
	"github.com/kayz/perplex/internal/output"
	"github.com/kayz/perplex/internal/promptbuild"
	"github.com/kayz/perplex/internal/search"
)

// Searcher returns ranked, validated results and never fails.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []search.Result
}

// Fetcher downloads a batch of pages and never fails.
type Fetcher interface {
	FetchAll(ctx context.Context, targets []fetch.Target) []fetch.Outcome
}

// Generator produces an answer or a printable placeholder.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) ai.Answer
}

type Options struct {
	ResultCount     int
	WebsitesToFetch int
	System          string
}

type Pipeline struct {
	searcher  Searcher
	fetcher   Fetcher
	assembler *promptbuild.Assembler
	model     Generator
	printer   *output.Printer
	opts      Options
}

func New(searcher Searcher, fetcher Fetcher, assembler *promptbuild.Assembler, model Generator, printer *output.Printer, opts Options) *Pipeline {
	if opts.System == "" {
		opts.System = promptbuild.DefaultSystemInstruction
	}
	return &Pipeline{
		searcher:  searcher,
		fetcher:   fetcher,
		assembler: assembler,
		model:     model,
		printer:   printer,
		opts:      opts,
	}
}

// Result is everything one turn produced.
type Result struct {
	Query    string
	Results  []search.Result
	Outcomes []fetch.Outcome
	Prompt   string
	Answer   ai.Answer
}

// Answer runs one turn. history is nil for a new topic. Every stage degrades
// instead of failing, so a Result is always returned.
func (p *Pipeline) Answer(ctx context.Context, query string, history []conversation.Turn) Result {
	res := Result{Query: query}

	p.printer.Status("🔍 Searching the web...")
	res.Results = p.searcher.Search(ctx, query, p.opts.ResultCount)
	if len(res.Results) == 0 {
		p.printer.Notice("🚫 No search results found. Answering without web sources. 🧐")
	} else {
		p.printer.Results(res.Results)
	}

	targets := topTargets(res.Results, p.opts.WebsitesToFetch)
	if len(targets) > 0 {
		p.printer.Status("🌍 Fetching website content...")
		res.Outcomes = p.fetcher.FetchAll(ctx, targets)
		p.reportFailures(res.Outcomes)
	}

	grounding := promptbuild.GroundingResults(res.Results, res.Outcomes, len(targets))
	res.Prompt = p.assembler.Build(promptbuild.Request{
		Query:    query,
		Results:  grounding,
		Outcomes: res.Outcomes,
		History:  history,
	})
	logger.Debug("Prompt for %q: %d chars, %d history turns", query, len(res.Prompt), len(history))

	p.printer.Status("🧠 Generating AI response...")
	res.Answer = p.model.Generate(ctx, p.opts.System, res.Prompt)
	return res
}

func (p *Pipeline) reportFailures(outcomes []fetch.Outcome) {
	failed := make([]fetch.Outcome, 0, len(outcomes))
	ok := 0
	for _, o := range outcomes {
		if o.OK() {
			ok++
			continue
		}
		failed = append(failed, o)
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Index < failed[j].Index })
	for _, o := range failed {
		p.printer.Notice("%s", o.Diagnostic())
	}
	if ok == 0 {
		p.printer.Notice("⚠️ Failed to fetch website content within timeout. Proceeding with search results only. ⏳")
	}
}

func topTargets(results []search.Result, n int) []fetch.Target {
	if n > len(results) {
		n = len(results)
	}
	if n <= 0 {
		return nil
	}
	targets := make([]fetch.Target, n)
	for i := 0; i < n; i++ {
		targets[i] = fetch.Target{Index: i + 1, URL: results[i].URL}
	}
	return targets
}
