package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// seedFile is the JSON shape the memory backend loads at startup.
type seedFile struct {
	Servers []Server `json:"servers"`
	Models  []Model  `json:"models"`
}

// Memory is a read-only in-process catalog seeded from a JSON file. It is
// the default backend for development and tests.
type Memory struct {
	mu      sync.RWMutex
	servers map[string]Server
	models  map[string]Model
}

// NewMemory builds an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		servers: make(map[string]Server),
		models:  make(map[string]Model),
	}
}

// NewMemoryFromFile loads the seed JSON at path.
func NewMemoryFromFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	m := NewMemory()
	for _, s := range seed.Servers {
		m.servers[s.ID] = s
	}
	for _, mod := range seed.Models {
		m.models[mod.ID] = mod
	}
	return m, nil
}

// Put inserts or replaces a server row. Used by tests and seeding.
func (m *Memory) Put(s Server) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers[s.ID] = s
}

// PutModel inserts or replaces a model row.
func (m *Memory) PutModel(mod Model) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[mod.ID] = mod
}

// ListServers returns every server sorted by name.
func (m *Memory) ListServers(_ context.Context) ([]Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Server, 0, len(m.servers))
	for _, s := range m.servers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetServer loads one server or returns ErrNotFound.
func (m *Memory) GetServer(_ context.Context, id string) (Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.servers[id]
	if !ok {
		return Server{}, ErrNotFound
	}
	return s, nil
}

// ListModels returns every model sorted by name.
func (m *Memory) ListModels(_ context.Context) ([]Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Model, 0, len(m.models))
	for _, mod := range m.models {
		out = append(out, mod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetModel loads one model or returns ErrNotFound.
func (m *Memory) GetModel(_ context.Context, id string) (Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mod, ok := m.models[id]
	if !ok {
		return Model{}, ErrNotFound
	}
	return mod, nil
}

// Close implements Repository; nothing to release.
func (m *Memory) Close() {}
