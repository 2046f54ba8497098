package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Opener constructs the durable backend.
type Opener func(ctx context.Context) (Cache, error)

// Lazy holds the process-wide cache. The backend is opened on first use; if
// that fails the in-memory fallback is used for the rest of the process.
type Lazy struct {
	open Opener

	once sync.Once
	mu   sync.Mutex
	c    Cache
}

// NewLazy returns a holder that opens the backend with open on first use.
func NewLazy(open Opener) *Lazy {
	return &Lazy{open: open}
}

// Get returns the cache, opening it on the first call. The open outlives
// ctx's cancellation since its result is kept for the whole process.
func (l *Lazy) Get(ctx context.Context) Cache {
	l.once.Do(func() {
		var c Cache
		if l.open != nil {
			var err error
			c, err = l.open(context.WithoutCancel(ctx))
			if err != nil {
				zap.L().Warn("cache: backend unavailable, using in-memory fallback (metrics disabled)", zap.Error(err))
				c = nil
			}
		}
		if c == nil {
			c = NewMemory()
		}
		l.mu.Lock()
		l.c = c
		l.mu.Unlock()
	})
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c
}

// Close shuts down the backend if it was opened.
func (l *Lazy) Close() error {
	l.mu.Lock()
	c := l.c
	l.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}
