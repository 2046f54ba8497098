package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is the in-process fallback. It has the same TTL semantics as
// the SQL backends but does not keep metrics.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || !e.expiresAt.After(m.now()) {
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

func (m *MemoryCache) Cleanup(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if !e.expiresAt.After(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Incr is a no-op: the memory fallback does not track metrics.
func (m *MemoryCache) Incr(context.Context, string, int64) {}

// Metrics reports every counter at zero.
func (m *MemoryCache) Metrics(context.Context) map[string]int64 {
	return zeroMetrics()
}

func (m *MemoryCache) Close() error { return nil }
