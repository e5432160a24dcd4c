// Package cache stores rendered charts and serialized analyses for a short time.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a byte cache with a fixed time-to-live. A miss is not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
}

type entry struct {
	createdAt time.Time
	val       []byte
}

// Memory is an in-process cache guarded by a mutex.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{entries: map[string]entry{}, ttl: ttl, now: time.Now}
}

// Get returns a copy of a live entry. Expired entries are evicted on access.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.createdAt.Add(m.ttl)) {
		delete(m.entries, key)
		return nil, false
	}
	out := make([]byte, len(e.val))
	copy(out, e.val)
	return out, true
}

func (m *Memory) Set(_ context.Context, key string, val []byte) {
	cp := make([]byte, len(val))
	copy(cp, val)
	m.mu.Lock()
	m.entries[key] = entry{createdAt: m.now(), val: cp}
	m.mu.Unlock()
}
