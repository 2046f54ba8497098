package resilience

import (
	"sync"
	"time"
)

// Breaker counts failures per key and opens a key once the threshold is
// reached. With a zero cooldown an open key stays open for the breaker's
// lifetime, which suits per-request scoping; with a cooldown the key closes
// again after that much time without new failures.
type Breaker struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures map[string]int
	openedAt map[string]time.Time

	nowFunc func() time.Time
}

// NewBreaker creates a breaker. threshold <= 0 disables it.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		failures:  make(map[string]int),
		openedAt:  make(map[string]time.Time),
		nowFunc:   time.Now,
	}
}

// Allow reports whether calls for key may proceed.
func (b *Breaker) Allow(key string) bool {
	if b == nil || b.threshold <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	opened, ok := b.openedAt[key]
	if !ok {
		return true
	}
	if b.cooldown > 0 && b.nowFunc().Sub(opened) >= b.cooldown {
		delete(b.openedAt, key)
		b.failures[key] = 0
		return true
	}
	return false
}

// Failure records a failure for key and reports whether the key is now open.
func (b *Breaker) Failure(key string) bool {
	if b == nil || b.threshold <= 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures[key]++
	if b.failures[key] >= b.threshold {
		if _, open := b.openedAt[key]; !open {
			b.openedAt[key] = b.nowFunc()
		}
		return true
	}
	return false
}

// Success clears the failure count for key.
func (b *Breaker) Success(key string) {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[key] = 0
	delete(b.openedAt, key)
}
