// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package zones

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps zones in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	zones map[string]Zone
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{zones: make(map[string]Zone)}
}

func clone(z Zone) Zone {
	if z.Attributes != nil {
		z.Attributes = maps.Clone(z.Attributes)
	}
	return z
}

func (m *MemoryStore) List(_ context.Context) ([]Zone, error) {
	m.mu.RLock()
	out := make([]Zone, 0, len(m.zones))
	for _, z := range m.zones {
		out = append(out, clone(z))
	}
	m.mu.RUnlock()
	sortZones(out)
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Zone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	z, ok := m.zones[id]
	if !ok {
		return Zone{}, ErrNotFound
	}
	return clone(z), nil
}

func (m *MemoryStore) Put(_ context.Context, z Zone) error {
	if err := z.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.zones[z.ID] = clone(z)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[id]; !ok {
		return ErrNotFound
	}
	delete(m.zones, id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }
