package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kayz/perplex/internal/ai"
	"github.com/kayz/perplex/internal/conversation"
	"github.com/kayz/perplex/internal/fetch"
	"github.com/kayz/perplex/internal/output"
	"github.com/kayz/perplex/internal/persist"
	"github.com/kayz/perplex/internal/promptbuild"
	"github.com/kayz/perplex/internal/search"
)

type fakeSearcher struct {
	results []search.Result
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, limit int) []search.Result {
	f.queries = append(f.queries, query)
	if limit < len(f.results) {
		return f.results[:limit]
	}
	return f.results
}

type fakeFetcher struct {
	byURL   map[string]fetch.Outcome
	targets [][]fetch.Target
}

func (f *fakeFetcher) FetchAll(_ context.Context, targets []fetch.Target) []fetch.Outcome {
	f.targets = append(f.targets, targets)
	out := make([]fetch.Outcome, 0, len(targets))
	// reverse order mimics completion order differing from rank
	for i := len(targets) - 1; i >= 0; i-- {
		o := f.byURL[targets[i].URL]
		o.Index = targets[i].Index
		o.URL = targets[i].URL
		out = append(out, o)
	}
	return out
}

type fakeModel struct {
	answers []ai.Answer
	prompts []string
	systems []string
}

func (f *fakeModel) Generate(_ context.Context, system, prompt string) ai.Answer {
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, prompt)
	if len(f.answers) == 0 {
		return ai.Answer{Text: "answer"}
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a
}

func results(n int) []search.Result {
	all := []search.Result{
		{Title: "Go", Description: "The Go language", URL: "https://go.dev"},
		{Title: "Tour", Description: "A tour of Go", URL: "https://go.dev/tour"},
		{Title: "Blog", Description: "The Go blog", URL: "https://go.dev/blog"},
		{Title: "Wiki", Description: "Go wiki", URL: "https://go.dev/wiki"},
	}
	return all[:n]
}

func newTestPipeline(s Searcher, f Fetcher, m Generator, out *bytes.Buffer) *Pipeline {
	return New(s, f, &promptbuild.Assembler{MaxContentLength: 50}, m,
		output.NewPrinter(out, output.ColorNever),
		Options{ResultCount: 10, WebsitesToFetch: 3})
}

func TestAnswerGroundsOnFetchedContent(t *testing.T) {
	var out bytes.Buffer
	searcher := &fakeSearcher{results: results(4)}
	fetcher := &fakeFetcher{byURL: map[string]fetch.Outcome{
		"https://go.dev":      {Kind: fetch.Success, Text: "Go is an open source programming language."},
		"https://go.dev/tour": {Kind: fetch.Timeout, Reason: fetch.ReasonTimedOut, Limit: 10 * time.Second},
		"https://go.dev/blog": {Kind: fetch.Success, Text: strings.Repeat("b", 80)},
	}}
	model := &fakeModel{}
	p := newTestPipeline(searcher, fetcher, model, &out)

	res := p.Answer(context.Background(), "what is go", nil)

	require.Len(t, fetcher.targets, 1)
	assert.Len(t, fetcher.targets[0], 3, "only the top websites are fetched")
	assert.Equal(t, "answer", res.Answer.Text)
	assert.Equal(t, promptbuild.DefaultSystemInstruction, model.systems[0])

	prompt := res.Prompt
	assert.NotContains(t, prompt, "Conversation History")
	assert.Contains(t, prompt, "[1] Go\nThe Go language\nhttps://go.dev")
	assert.NotContains(t, prompt, "go.dev/wiki", "results are narrowed to the fetched top three")
	assert.Contains(t, prompt, strings.Repeat("b", 50)+"...")
	assert.Less(t, strings.Index(prompt, "[Content 1]"), strings.Index(prompt, "[Content 3]"))

	printed := out.String()
	assert.Contains(t, printed, "🔍 Searching the web...")
	assert.Contains(t, printed, "⚠️ Request timed out for https://go.dev/tour after 10 seconds ⏳")
	assert.Contains(t, printed, "🧠 Generating AI response...")
}

func TestAnswerWithoutSearchResultsStillInfers(t *testing.T) {
	var out bytes.Buffer
	fetcher := &fakeFetcher{}
	model := &fakeModel{}
	p := newTestPipeline(&fakeSearcher{}, fetcher, model, &out)

	res := p.Answer(context.Background(), "obscure question", nil)

	assert.Empty(t, fetcher.targets, "nothing to fetch")
	require.Len(t, model.prompts, 1)
	assert.Contains(t, res.Prompt, "### Search Results\n\n(none)")
	assert.Contains(t, res.Prompt, "### Website Contents\n\n(none)")
	assert.Contains(t, out.String(), "No search results found")
}

func TestAnswerAllFetchesFailedUsesFullResultList(t *testing.T) {
	var out bytes.Buffer
	fetcher := &fakeFetcher{byURL: map[string]fetch.Outcome{
		"https://go.dev":      {Kind: fetch.NetworkError, Reason: "HTTP 500"},
		"https://go.dev/tour": {Kind: fetch.NetworkError, Reason: fetch.ReasonNoBody},
		"https://go.dev/blog": {Kind: fetch.ExtractionError, Reason: fetch.ReasonNoText},
	}}
	p := newTestPipeline(&fakeSearcher{results: results(4)}, fetcher, &fakeModel{}, &out)

	res := p.Answer(context.Background(), "q", nil)

	assert.Contains(t, res.Prompt, "https://go.dev/wiki")
	assert.Contains(t, out.String(), "Proceeding with search results only")
	assert.Contains(t, out.String(), "⚠️ Could not download content from https://go.dev/tour 🚫")
	assert.Contains(t, out.String(), "⚠️ Could not extract text from https://go.dev/blog 🚫")
}

type memRecorder struct {
	mu      sync.Mutex
	records []persist.AuditRecord
	err     error
}

func (m *memRecorder) Record(_ context.Context, r persist.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return m.err
}

func newSession(in string, model *fakeModel, rec Recorder, out *bytes.Buffer) *Session {
	fetcher := &fakeFetcher{byURL: map[string]fetch.Outcome{
		"https://go.dev": {Kind: fetch.Success, Text: "content"},
	}}
	p := newTestPipeline(&fakeSearcher{results: results(1)}, fetcher, model, out)
	clock := time.Date(2025, 2, 18, 12, 7, 0, 0, time.UTC)
	return &Session{
		Pipeline:  p,
		Machine:   conversation.NewMachine(nil, 5),
		Printer:   output.NewPrinter(out, output.ColorNever),
		In:        strings.NewReader(in),
		Audit:     rec,
		SessionID: "session-1",
		Now:       func() time.Time { return clock },
	}
}

func TestSessionFollowUpInjectsHistory(t *testing.T) {
	var out bytes.Buffer
	model := &fakeModel{answers: []ai.Answer{{Text: "first answer"}, {Text: "second answer"}}}
	rec := &memRecorder{}
	s := newSession("what is go\nand who made it?\nexit\n", model, rec, &out)

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, model.prompts, 2)
	assert.NotContains(t, model.prompts[0], "Conversation History")
	assert.Contains(t, model.prompts[1], "### Conversation History\n\n[1] User: what is go\nAssistant: first answer")
	assert.Contains(t, model.prompts[1], "### User's Query\n\nand who made it?")
	assert.Equal(t, conversation.Terminated, s.Machine.State())
	assert.Equal(t, 2, s.Machine.Log().Len())

	require.Len(t, rec.records, 2)
	assert.Equal(t, 2, rec.records[1].TurnNo)
	assert.Equal(t, "session-1", rec.records[1].SessionID)
	assert.Equal(t, 1, rec.records[0].Sources)
	assert.Contains(t, out.String(), "💡 AI Response")
	assert.Contains(t, out.String(), "👋 Exiting... 👋")
}

func TestSessionEmptyFollowUpStartsNewTopic(t *testing.T) {
	var out bytes.Buffer
	model := &fakeModel{}
	s := newSession("\n  \nfirst topic\n\nsecond topic\n", model, nil, &out)

	require.NoError(t, s.Run(context.Background()), "end of input is a clean exit")

	require.Len(t, model.prompts, 2)
	assert.NotContains(t, model.prompts[1], "Conversation History", "a reset drops history")
	assert.Contains(t, out.String(), "Starting a new topic")
	assert.Equal(t, 1, s.Machine.Log().Len())
}

func TestSessionRecordsPlaceholderAnswers(t *testing.T) {
	var out bytes.Buffer
	model := &fakeModel{answers: []ai.Answer{{Text: ai.EmptyResponse, Err: errors.New("empty response")}}}
	rec := &memRecorder{err: errors.New("disk full")}
	s := newSession("q\nEXIT\n", model, rec, &out)

	require.NoError(t, s.Run(context.Background()))

	turns := s.Machine.Log().Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, ai.EmptyResponse, turns[0].Response)
	assert.Len(t, rec.records, 1, "audit failure does not stop the session")
}

func TestSessionStopsOnCancel(t *testing.T) {
	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSession("", &fakeModel{}, nil, &out)
	s.In = blockingReader{}
	require.NoError(t, s.Run(ctx))
	assert.Contains(t, out.String(), "👋 Exiting... 👋")
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func TestReadLinesStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lines := readLines(ctx, strings.NewReader("first\nexit\nleftover\nmore\n"))

	require.Equal(t, "first", <-lines)
	cancel()

	done := make(chan struct{})
	go func() {
		for range lines {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("line reader kept running after cancellation")
	}
}
