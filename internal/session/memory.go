package session

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in process memory
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get returns the value stored under key
func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	value, ok := b.values[key]
	b.mu.RUnlock()
	return value, ok, nil
}

// Set stores value under key
func (b *MemoryBackend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	b.values[key] = value
	b.mu.Unlock()
	return nil
}

// Delete removes keys
func (b *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	for _, key := range keys {
		delete(b.values, key)
	}
	b.mu.Unlock()
	return nil
}
