package search

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/kayz/perplex/internal/config"
	"github.com/kayz/perplex/internal/logger"
)

type stubEngine struct {
	name     string
	priority int
	results  []Result
	err      error
	calls    int
}

func (s *stubEngine) Name() string    { return s.name }
func (s *stubEngine) Type() string    { return "stub" }
func (s *stubEngine) IsEnabled() bool { return true }
func (s *stubEngine) Priority() int   { return s.priority }
func (s *stubEngine) Search(_ context.Context, query string, _ int) (*Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Query: query, Results: s.results, Engine: s.name}, nil
}

func TestManagerFailsOverInPriorityOrder(t *testing.T) {
	primary := &stubEngine{name: "primary", priority: 1, err: errors.New("boom")}
	empty := &stubEngine{name: "empty", priority: 2}
	backup := &stubEngine{name: "backup", priority: 3, results: []Result{{Title: "t", Description: "d", URL: "u"}}}

	m := &Manager{registry: NewRegistry()}
	m.AddEngine(backup)
	m.AddEngine(primary)
	m.AddEngine(empty)

	resp, err := m.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Engine != "backup" {
		t.Fatalf("expected backup engine to answer, got %s", resp.Engine)
	}
	if primary.calls != 1 || empty.calls != 1 {
		t.Fatalf("expected earlier engines to be tried once, got %d and %d", primary.calls, empty.calls)
	}
}

func TestManagerReturnsLastError(t *testing.T) {
	m := &Manager{registry: NewRegistry()}
	m.AddEngine(&stubEngine{name: "a", priority: 1, err: errors.New("down")})

	if _, err := m.Search(context.Background(), "q", 5); err == nil {
		t.Fatalf("expected error when every engine fails")
	}
}

func TestNewManagerSkipsEnginesWithoutKeys(t *testing.T) {
	cfg := config.SearchConfig{
		ResultCount: 5,
		Engines: []config.SearchEngineConfig{
			{Name: "brave", Type: "brave", Enabled: true, Priority: 1},
			{Name: "ddg", Type: "duckduckgo", Enabled: true, Priority: 2},
			{Name: "off", Type: "tavily", Enabled: false, Priority: 0, APIKey: "k"},
		},
	}
	m, err := NewManager(cfg, NewRegistry())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	names := m.ListEngines()
	if len(names) != 1 || names[0] != "ddg" {
		t.Fatalf("expected only ddg, got %v", names)
	}

	cfg.Engines = cfg.Engines[:1]
	if _, err := NewManager(cfg, NewRegistry()); !errors.Is(err, ErrNoEngines) {
		t.Fatalf("expected ErrNoEngines, got %v", err)
	}
}

func TestNewManagerLogsSkippedEnginesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.GetLevel()
	logger.SetOutput(&buf)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(prev)
	})

	cfg := config.SearchConfig{
		Engines: []config.SearchEngineConfig{
			{Name: "brave", Type: "brave", Enabled: true, Priority: 1},
			{Name: "ddg", Type: "duckduckgo", Enabled: true, Priority: 2},
		},
	}

	logger.SetLevel(logger.WarnLevel)
	if _, err := NewManager(cfg, NewRegistry()); err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected a keyless engine to be skipped quietly at warn level, got %q", buf.String())
	}

	logger.SetLevel(logger.DebugLevel)
	if _, err := NewManager(cfg, NewRegistry()); err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if !strings.Contains(buf.String(), "Search engine brave skipped: no api key") {
		t.Fatalf("expected debug skip message, got %q", buf.String())
	}
}

func TestNewManagerUnknownType(t *testing.T) {
	cfg := config.SearchConfig{Engines: []config.SearchEngineConfig{{Name: "x", Type: "gopher", Enabled: true}}}
	if _, err := NewManager(cfg, NewRegistry()); err == nil {
		t.Fatalf("expected error for unknown engine type")
	}
}
