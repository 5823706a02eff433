package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kayz/perplex/internal/config"
	"github.com/kayz/perplex/internal/logger"
)

// ErrNoEngines is returned when no engine could be constructed from config.
var ErrNoEngines = errors.New("no available search engine")

// Manager tries enabled engines in priority order until one returns results.
type Manager struct {
	registry *Registry
	engines  []Engine
	mu       sync.RWMutex
}

func NewManager(cfg config.SearchConfig, registry *Registry) (*Manager, error) {
	m := &Manager{registry: registry}

	for _, engineCfg := range cfg.Engines {
		if !engineCfg.Enabled {
			continue
		}
		engine, err := registry.CreateEngine(EngineConfig{
			Name:     engineCfg.Name,
			Type:     engineCfg.Type,
			APIKey:   engineCfg.APIKey,
			BaseURL:  engineCfg.BaseURL,
			Enabled:  engineCfg.Enabled,
			Priority: engineCfg.Priority,
			Options:  engineCfg.Options,
		})
		if errors.Is(err, ErrMissingAPIKey) {
			logger.Debug("Search engine %s skipped: no api key", engineCfg.Name)
			continue
		}
		if err != nil {
			return nil, err
		}
		m.engines = append(m.engines, engine)
	}

	if len(m.engines) == 0 {
		return nil, ErrNoEngines
	}
	m.sortEngines()
	return m, nil
}

// AddEngine registers an already constructed engine.
func (m *Manager) AddEngine(engine Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engines = append(m.engines, engine)
	sort.SliceStable(m.engines, func(i, j int) bool {
		return m.engines[i].Priority() < m.engines[j].Priority()
	})
}

func (m *Manager) sortEngines() {
	sort.SliceStable(m.engines, func(i, j int) bool {
		return m.engines[i].Priority() < m.engines[j].Priority()
	})
}

func (m *Manager) ListEngines() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.engines))
	for _, e := range m.engines {
		names = append(names, e.Name())
	}
	return names
}

func (m *Manager) Search(ctx context.Context, query string, limit int) (*Response, error) {
	m.mu.RLock()
	engines := make([]Engine, 0, len(m.engines))
	for _, e := range m.engines {
		if e.IsEnabled() {
			engines = append(engines, e)
		}
	}
	m.mu.RUnlock()

	if len(engines) == 0 {
		return nil, ErrNoEngines
	}

	var lastErr error
	for _, engine := range engines {
		resp, err := engine.Search(ctx, query, limit)
		if err == nil && resp != nil && len(resp.Results) > 0 {
			logger.Debug("Search engine %s returned %d results in %v", engine.Name(), len(resp.Results), resp.Duration)
			return resp, nil
		}
		if err != nil {
			logger.Debug("Search engine %s failed: %v", engine.Name(), err)
			lastErr = fmt.Errorf("%s: %w", engine.Name(), err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return &Response{Query: query}, nil
}

func (m *Manager) SearchWithEngine(ctx context.Context, engineName, query string, limit int) (*Response, error) {
	m.mu.RLock()
	var engine Engine
	for _, e := range m.engines {
		if e.Name() == engineName {
			engine = e
			break
		}
	}
	m.mu.RUnlock()

	if engine == nil {
		return nil, fmt.Errorf("engine not found: %s", engineName)
	}

	return engine.Search(ctx, query, limit)
}
