// Package cache stores serialized ratings responses with a TTL and keeps the
// process-wide metric counters.
package cache

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rating-finder/internal/config"
	"github.com/sells-group/rating-finder/internal/model"
)

// Cache is a keyed TTL store plus monotonically increasing counters.
// Implementations are safe for concurrent use.
type Cache interface {
	// Get returns the value for key when it has not expired. Every call
	// counts a cache hit or miss.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set upserts value under key. It does not touch the counters.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Cleanup deletes expired entries and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)
	// Incr adds n to the named counter.
	Incr(ctx context.Context, name string, n int64)
	// Metrics returns a snapshot of all counters.
	Metrics(ctx context.Context) map[string]int64
	Close() error
}

// Open creates the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(ctx, cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}

func zeroMetrics() map[string]int64 {
	m := make(map[string]int64, len(model.MetricNames()))
	for _, name := range model.MetricNames() {
		m[name] = 0
	}
	return m
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying c.
func WithContext(ctx context.Context, c Cache) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the cache carried by ctx, if any.
func FromContext(ctx context.Context) (Cache, bool) {
	c, ok := ctx.Value(ctxKey{}).(Cache)
	return c, ok && c != nil
}

// ContextCounter increments counters on the cache carried by the context.
// Without one the increment is dropped.
type ContextCounter struct{}

func (ContextCounter) Incr(ctx context.Context, name string, n int64) {
	if c, ok := FromContext(ctx); ok {
		c.Incr(ctx, name, n)
	}
}
