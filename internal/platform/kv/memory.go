package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Store used by tests and single-node development
// runs. All operations are guarded by one mutex, so SaveAll is trivially
// atomic.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(ctx context.Context, namespace string, v any) error {
	m.mu.RLock()
	raw, ok := m.data[namespace]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNamespaceNotFound, namespace)
	}
	return json.Unmarshal(raw, v)
}

func (m *Memory) Save(ctx context.Context, namespace string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: marshal %s: %w", namespace, err)
	}
	m.mu.Lock()
	m.data[namespace] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) SaveAll(ctx context.Context, entries map[string]any) error {
	encoded := make(map[string][]byte, len(entries))
	for ns, v := range entries {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("kv: marshal %s: %w", ns, err)
		}
		encoded[ns] = raw
	}
	m.mu.Lock()
	for ns, raw := range encoded {
		m.data[ns] = raw
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Reset(ctx context.Context, namespace string) error {
	m.mu.Lock()
	delete(m.data, namespace)
	m.mu.Unlock()
	return nil
}
