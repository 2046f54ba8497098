package fetcher

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter wraps a rate.Limiter that speeds up on success (20%, up to
// 2x initial) and halves on 429 (down to initial/4).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter.
func NewAdaptiveLimiter(initial rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initial, burst),
		maxRate:     initial * 2,
		minRate:     initial / 4,
		currentRate: initial,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess nudges the rate up.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(min(a.currentRate*1.2, a.maxRate))
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit(host string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(max(a.currentRate*0.5, a.minRate))
	zap.L().Warn("fetcher: reducing host rate after 429",
		zap.String("host", host),
		zap.Float64("rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.currentRate = r
	a.limiter.SetLimit(r)
}

// hostLimiters lazily creates one adaptive limiter per host.
type hostLimiters struct {
	mu     sync.Mutex
	rate   rate.Limit
	burst  int
	byHost map[string]*AdaptiveLimiter
}

func newHostLimiters(r rate.Limit, burst int) *hostLimiters {
	return &hostLimiters{rate: r, burst: burst, byHost: make(map[string]*AdaptiveLimiter)}
}

func (h *hostLimiters) get(host string) *AdaptiveLimiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	lim, ok := h.byHost[host]
	if !ok {
		lim = NewAdaptiveLimiter(h.rate, h.burst)
		h.byHost[host] = lim
	}
	return lim
}
