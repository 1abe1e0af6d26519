package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps collection bodies in process memory. Useful for tests
// and throwaway environments.
type MemoryBackend struct {
	mu     sync.RWMutex
	bodies map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{bodies: make(map[string][]byte)}
}

func (b *MemoryBackend) Read(_ context.Context, name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	body, ok := b.bodies[name]
	if !ok {
		return nil, ErrNotExist
	}
	return append([]byte(nil), body...), nil
}

func (b *MemoryBackend) Write(_ context.Context, name string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bodies[name] = append([]byte(nil), body...)
	return nil
}

func (b *MemoryBackend) Ping(context.Context) error { return nil }
