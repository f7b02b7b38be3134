package localstore

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	updatedAt time.Time
}

// Memory keeps everything in process memory.
type Memory struct {
	mu    sync.RWMutex
	items map[string]map[string]memEntry
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]map[string]memEntry), now: time.Now}
}

func (m *Memory) GetItem(_ context.Context, namespace, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[namespace][key]
	return e.value, ok, nil
}

func (m *Memory) SetItem(_ context.Context, namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.items[namespace]
	if !ok {
		ns = make(map[string]memEntry)
		m.items[namespace] = ns
	}
	ns[key] = memEntry{value: value, updatedAt: m.now()}
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ns, ok := m.items[namespace]; ok {
		delete(ns, key)
		if len(ns) == 0 {
			delete(m.items, namespace)
		}
	}
	return nil
}

func (m *Memory) Clear(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, namespace)
	return nil
}

func (m *Memory) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for name, ns := range m.items {
		latest := time.Time{}
		for _, e := range ns {
			if e.updatedAt.After(latest) {
				latest = e.updatedAt
			}
		}
		if latest.Before(cutoff) {
			removed += int64(len(ns))
			delete(m.items, name)
		}
	}
	return removed, nil
}
