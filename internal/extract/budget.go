package extract

import (
	"context"
	"sync/atomic"
)

type budgetKey struct{}

// WithCallBudget limits the number of generative fallback calls made with
// ctx (and its children) to n. Without a budget the fallback is unlimited.
func WithCallBudget(ctx context.Context, n int) context.Context {
	b := &atomic.Int64{}
	b.Store(int64(n))
	return context.WithValue(ctx, budgetKey{}, b)
}

// takeCall consumes one fallback call from the budget in ctx.
func takeCall(ctx context.Context) bool {
	b, ok := ctx.Value(budgetKey{}).(*atomic.Int64)
	if !ok {
		return true
	}
	return b.Add(-1) >= 0
}
