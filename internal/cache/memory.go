package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"chitieu/internal/core"
	"chitieu/internal/storage"
)

// Memory is a process-local Local. Values are stored JSON-encoded under the
// same keys the durable cache uses, so callers never share slices with it.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, userID string, u core.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	m.mu.Lock()
	m.data[storage.SnapshotKey(userID)] = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, userID string) (*core.User, error) {
	m.mu.RLock()
	b, ok := m.data[storage.SnapshotKey(userID)]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var u core.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &u, nil
}

func (m *Memory) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.data, storage.SnapshotKey(userID))
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetLastUser(_ context.Context, userID string) error {
	m.set(storage.LastUserKey, []byte(userID))
	return nil
}

func (m *Memory) LastUser(_ context.Context) (string, error) {
	return string(m.get(storage.LastUserKey)), nil
}

func (m *Memory) ClearLastUser(_ context.Context) error {
	m.mu.Lock()
	delete(m.data, storage.LastUserKey)
	m.mu.Unlock()
	return nil
}

func (m *Memory) SaveTheme(_ context.Context, theme []byte) error {
	m.set(storage.ThemeKey, append([]byte(nil), theme...))
	return nil
}

func (m *Memory) LoadTheme(_ context.Context) ([]byte, error) {
	if b := m.get(storage.ThemeKey); b != nil {
		return append([]byte(nil), b...), nil
	}
	return nil, nil
}

// Keys returns the number of stored keys.
func (m *Memory) Keys() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) set(key string, v []byte) {
	m.mu.Lock()
	m.data[key] = v
	m.mu.Unlock()
}

func (m *Memory) get(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key]
}
