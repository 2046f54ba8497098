// Package evidence fans fetches out across aliases and candidate URLs within
// a wall-clock budget and turns the pages into rating-bearing text windows.
package evidence

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rating-finder/internal/fetcher"
	"github.com/sells-group/rating-finder/internal/model"
	"github.com/sells-group/rating-finder/internal/resilience"
)

// CandidateSource yields the candidate URLs for one alias.
type CandidateSource interface {
	Candidates(alias string) []model.Candidate
}

// Counter receives metric increments.
type Counter interface {
	Incr(ctx context.Context, name string, n int64)
}

// Options configures the orchestrator. Zero values take the defaults.
type Options struct {
	Concurrency       int
	Budget            time.Duration
	MaxWindows        int
	MaxWindowsPerPage int
	MaxWindowChars    int
	// BlockThreshold is the number of blocked URLs on one host after which
	// the host's remaining URLs are skipped for the request. 0 disables it.
	BlockThreshold int
	Metrics        Counter
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 6
	}
	if o.Budget <= 0 {
		o.Budget = 8 * time.Second
	}
	if o.MaxWindows <= 0 {
		o.MaxWindows = 12
	}
	if o.MaxWindowsPerPage <= 0 {
		o.MaxWindowsPerPage = 4
	}
	if o.MaxWindowChars <= 0 {
		o.MaxWindowChars = 1500
	}
	return o
}

// Orchestrator collects evidence windows.
type Orchestrator struct {
	fetcher fetcher.Fetcher
	opts    Options
}

// New creates an orchestrator.
func New(f fetcher.Fetcher, opts Options) *Orchestrator {
	return &Orchestrator{fetcher: f, opts: opts.withDefaults()}
}

// Collect fetches the aliases x candidates cross product (deduplicated by
// URL) with bounded concurrency. It stops issuing fetches when the budget is
// spent or the window cap is reached, abandons in-flight fetches at the
// deadline and returns whatever was collected. A budget <= 0 uses the
// configured default.
func (o *Orchestrator) Collect(ctx context.Context, aliases model.AliasSet, src CandidateSource, budget time.Duration) ([]model.EvidenceWindow, model.Diagnostics) {
	if budget <= 0 {
		budget = o.opts.Budget
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	run := &collection{
		opts:    o.opts,
		breaker: resilience.NewBreaker(o.opts.BlockThreshold, 0),
		cancel:  cancel,
	}

	candidates := Plan(aliases, src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(o.opts.Concurrency)
		for _, c := range candidates {
			if ctx.Err() != nil {
				break
			}
			if !run.breaker.Allow(hostOf(c.URL)) {
				run.skip(c)
				continue
			}
			g.Go(func() error {
				o.visit(ctx, run, c)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	windows, diag := run.close()
	diag.ElapsedMs = time.Since(start).Milliseconds()

	zap.L().Debug("evidence: collected",
		zap.Int("candidates", len(candidates)),
		zap.Int("tried", len(diag.Tried)),
		zap.Int("blocked", len(diag.Blocked)),
		zap.Int("windows", len(windows)),
		zap.Int64("elapsed_ms", diag.ElapsedMs),
	)
	return windows, diag
}

func (o *Orchestrator) visit(ctx context.Context, run *collection, c model.Candidate) {
	host := hostOf(c.URL)
	if !run.breaker.Allow(host) {
		run.skip(c)
		return
	}
	if !run.begin(c.URL) {
		return
	}

	res := o.fetcher.Fetch(ctx, c.URL)

	switch res.Outcome {
	case fetcher.OutcomeOK:
		o.incr(ctx, model.MetricSearchResultsTotal, 1)
		windows := Split(Blocks(res.Body), c, o.opts.MaxWindowChars, o.opts.MaxWindowsPerPage)
		if n := run.addWindows(windows); n > 0 {
			o.incr(ctx, model.MetricEvidenceWindowsTotal, int64(n))
		}
	case fetcher.OutcomeBlocked:
		run.breaker.Failure(host)
		run.record(func(d *model.Diagnostics) { d.Blocked = append(d.Blocked, c.URL) })
		o.incr(ctx, model.MetricBlocked403, 1)
	case fetcher.OutcomeNotFound:
		run.record(func(d *model.Diagnostics) { d.NotFound = append(d.NotFound, c.URL) })
	default:
		msg := c.URL
		if res.Err != nil {
			msg = fmt.Sprintf("%s: %v", c.URL, res.Err)
		}
		run.record(func(d *model.Diagnostics) { d.Errors = append(d.Errors, msg) })
	}
}

func (o *Orchestrator) incr(ctx context.Context, name string, n int64) {
	if o.opts.Metrics != nil {
		o.opts.Metrics.Incr(context.WithoutCancel(ctx), name, n)
	}
}

// Plan expands aliases x candidates into a URL-deduplicated list, in alias
// order.
func Plan(aliases model.AliasSet, src CandidateSource) []model.Candidate {
	seen := make(map[string]struct{})
	var out []model.Candidate
	for _, a := range aliases {
		for _, c := range src.Candidates(a) {
			if c.URL == "" {
				continue
			}
			if _, ok := seen[c.URL]; ok {
				continue
			}
			seen[c.URL] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}

// collection is the mutable per-request state. Once closed, late results
// from abandoned fetches are discarded.
type collection struct {
	opts    Options
	breaker *resilience.Breaker
	cancel  context.CancelFunc

	mu      sync.Mutex
	closed  bool
	diag    model.Diagnostics
	windows []model.EvidenceWindow
}

func (r *collection) begin(u string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.diag.Tried = append(r.diag.Tried, u)
	return true
}

func (r *collection) skip(c model.Candidate) {
	r.record(func(d *model.Diagnostics) { d.Blocked = append(d.Blocked, c.URL) })
}

func (r *collection) record(fn func(*model.Diagnostics)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		fn(&r.diag)
	}
}

func (r *collection) addWindows(ws []model.EvidenceWindow) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0
	}
	room := r.opts.MaxWindows - len(r.windows)
	if room <= 0 {
		return 0
	}
	if len(ws) > room {
		ws = ws[:room]
	}
	r.windows = append(r.windows, ws...)
	if len(r.windows) >= r.opts.MaxWindows {
		r.cancel()
	}
	return len(ws)
}

func (r *collection) close() ([]model.EvidenceWindow, model.Diagnostics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	d := r.diag
	d.Tried = append([]string{}, r.diag.Tried...)
	d.Blocked = append([]string{}, r.diag.Blocked...)
	d.NotFound = append([]string{}, r.diag.NotFound...)
	d.Errors = append([]string{}, r.diag.Errors...)
	return append([]model.EvidenceWindow{}, r.windows...), d
}
