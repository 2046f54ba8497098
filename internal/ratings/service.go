// Package ratings assembles ratings and discovery responses: cache lookup,
// alias expansion, the provider chain, normalization and validation.
package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/rating-finder/internal/alias"
	"github.com/sells-group/rating-finder/internal/cache"
	"github.com/sells-group/rating-finder/internal/evidence"
	"github.com/sells-group/rating-finder/internal/extract"
	"github.com/sells-group/rating-finder/internal/model"
	"github.com/sells-group/rating-finder/internal/rating"
	"github.com/sells-group/rating-finder/internal/resilience"
	"github.com/sells-group/rating-finder/internal/urls"
	"github.com/sells-group/rating-finder/internal/vendor"
)

// Deps are the pipeline components.
type Deps struct {
	Expander     *alias.Expander
	Constructor  *urls.Constructor
	IR           *urls.IRGuesser
	Orchestrator *evidence.Orchestrator
	Extractor    *extract.Extractor
	// Vendors are tried before scraping, in order.
	Vendors       []vendor.Provider
	VendorBreaker *resilience.Breaker
}

// Options tunes the service. Zero values take the defaults.
type Options struct {
	Agencies []model.Agency
	TTL      time.Duration
	// Budget is the evidence deadline, measured from the start of the
	// request. Extraction may run ExtractGrace past it; nothing network-bound
	// runs after Budget+ExtractGrace.
	Budget         time.Duration
	ExtractGrace   time.Duration
	RequestTimeout time.Duration
	// SearchAliases caps the aliases used for fetching.
	SearchAliases    int
	MaxFallbackCalls int
	// Institutional mode reports rejected entries and applies RequireDate.
	Institutional bool
	RequireDate   bool
	MaxAge        time.Duration
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if len(o.Agencies) == 0 {
		o.Agencies = model.AllAgencies()
	}
	if o.TTL <= 0 {
		o.TTL = 7 * 24 * time.Hour
	}
	if o.Budget <= 0 {
		o.Budget = 8 * time.Second
	}
	if o.ExtractGrace <= 0 {
		o.ExtractGrace = 2 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.SearchAliases <= 0 {
		o.SearchAliases = 10
	}
	if o.MaxFallbackCalls <= 0 {
		o.MaxFallbackCalls = 4
	}
	if o.MaxAge <= 0 {
		o.MaxAge = rating.DefaultMaxAge
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Service answers ratings and discovery queries. It never returns an error;
// every failure becomes a degraded response.
type Service struct {
	deps Deps
	opts Options
}

// New creates a service.
func New(deps Deps, opts Options) *Service {
	return &Service{deps: deps, opts: opts.withDefaults()}
}

// Ratings resolves q to validated ratings. The cache, when present, is taken
// from ctx.
func (s *Service) Ratings(ctx context.Context, q model.Query) (resp model.RatingsResponse) {
	start := time.Now()
	resp = newRatingsResponse(q, TraceID(ctx))
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("ratings: panic recovered", zap.String("query", q.Name), zap.Any("panic", r))
			resp.Status = model.StatusDegraded
			resp.Ratings = []model.RatingEntry{}
			resp.Diagnostics.Errors = append(resp.Diagnostics.Errors, fmt.Sprintf("internal error: %v", r))
		}
		resp.Meta.ElapsedMs = time.Since(start).Milliseconds()
	}()

	c, hasCache := cache.FromContext(ctx)
	if hasCache {
		c.Incr(ctx, model.MetricRequestsTotal, 1)
	}

	if q.Blank() {
		resp.Status = model.StatusDegraded
		resp.Diagnostics.Errors = append(resp.Diagnostics.Errors, "missing query")
		return resp
	}

	key := q.CacheKey()
	if hasCache {
		if hit, ok := s.fromCache(ctx, c, key); ok {
			hit.Meta = resp.Meta
			hit.Diagnostics.Cached = true
			return hit
		}
	}

	ctx, cancel := context.WithTimeout(ctx, min(s.opts.RequestTimeout, s.opts.Budget+s.opts.ExtractGrace))
	defer cancel()

	aliases := s.deps.Expander.Expand(ctx, q)
	sc := &scraper{svc: s, aliases: aliases.Limit(s.opts.SearchAliases), collectBy: start.Add(s.opts.Budget)}
	chain := vendor.NewChain(s.deps.VendorBreaker, append(slices.Clone(s.deps.Vendors), sc)...).
		WithSettle(s.valid)
	out := chain.Ratings(ctx, q, s.opts.Agencies)

	s.assemble(&resp, out, sc)

	if hasCache {
		// The request deadline may have passed; bookkeeping still runs.
		bg := context.WithoutCancel(ctx)
		if n := resp.Diagnostics.FilteredOutCount; n > 0 {
			c.Incr(bg, model.MetricFilteredOutTotal, int64(n))
		}
		if len(resp.Ratings) > 0 {
			s.store(bg, c, key, resp)
		}
	}

	zap.L().Info("ratings: resolved",
		zap.String("query", q.Name),
		zap.String("status", string(resp.Status)),
		zap.Int("accepted", resp.Diagnostics.AcceptedCount),
		zap.Int("filtered", resp.Diagnostics.FilteredOutCount),
		zap.Int("evidence", resp.Diagnostics.EvidenceCount),
	)
	return resp
}

func newRatingsResponse(q model.Query, traceID string) model.RatingsResponse {
	return model.RatingsResponse{
		Query:   strings.TrimSpace(q.Name),
		Status:  model.StatusOK,
		Ratings: []model.RatingEntry{},
		Diagnostics: model.RatingsDiagnostics{
			SourcesUsed: []string{},
			Domains:     []string{},
			Errors:      []string{},
		},
		Meta: model.Meta{TraceID: traceID},
	}
}

func (s *Service) validation() rating.Options {
	return rating.Options{
		RequireDate: s.opts.Institutional && s.opts.RequireDate,
		MaxAge:      s.opts.MaxAge,
		Now:         s.opts.Now,
	}
}

// valid reports whether e would be accepted by assemble.
func (s *Service) valid(e model.RatingEntry) bool {
	e.NormalizedScore = rating.Normalize(e.RatingRaw, e.Scale)
	return rating.Validate(e, s.validation()) == nil
}

// assemble picks the best valid entry per agency and fills diagnostics.
func (s *Service) assemble(resp *model.RatingsResponse, out vendor.Outcome, sc *scraper) {
	vopts := s.validation()

	byAgency := make(map[model.Agency][]model.RatingEntry)
	for _, e := range out.Entries {
		byAgency[e.Agency] = append(byAgency[e.Agency], e)
	}

	d := &resp.Diagnostics
	for _, a := range s.opts.Agencies {
		cands := byAgency[a]
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].Confidence > cands[j].Confidence })
		for _, e := range cands {
			e.NormalizedScore = rating.Normalize(e.RatingRaw, e.Scale)
			if err := rating.Validate(e, vopts); err != nil {
				d.FilteredOutCount++
				if s.opts.Institutional {
					d.Excluded = append(d.Excluded, fmt.Sprintf("%s %s from %s: %v", a, e.RatingRaw, e.SourceRef, err))
				}
				continue
			}
			resp.Ratings = append(resp.Ratings, e)
			break
		}
	}

	d.AcceptedCount = len(resp.Ratings)
	d.SourcesUsed = append(d.SourcesUsed, out.Sources...)
	d.Errors = append(d.Errors, out.Errors...)
	d.Errors = append(d.Errors, sc.diag.Errors...)
	d.EvidenceCount = len(sc.windows)
	d.Domains = append(d.Domains, domains(sc.windows)...)
	d.Tried = sc.diag.Tried
	d.Blocked = sc.diag.Blocked

	if len(resp.Ratings) == 0 {
		resp.Status = model.StatusDegraded
	}
}

func domains(ws []model.EvidenceWindow) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range ws {
		u, err := url.Parse(w.URL)
		if err != nil || u.Host == "" || seen[u.Host] {
			continue
		}
		seen[u.Host] = true
		out = append(out, u.Host)
	}
	return out
}

func (s *Service) fromCache(ctx context.Context, c cache.Cache, key string) (model.RatingsResponse, bool) {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return model.RatingsResponse{}, false
	}
	var resp model.RatingsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		zap.L().Warn("ratings: corrupt cache entry", zap.String("key", key), zap.Error(err))
		return model.RatingsResponse{}, false
	}
	return resp, true
}

func (s *Service) store(ctx context.Context, c cache.Cache, key string, resp model.RatingsResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		zap.L().Warn("ratings: marshal for cache", zap.Error(err))
		return
	}
	if err := c.Set(ctx, key, raw, s.opts.TTL); err != nil {
		zap.L().Warn("ratings: cache write", zap.String("key", key), zap.Error(err))
	}
}

// Find resolves q to an entity and its agency candidate pages without
// fetching anything.
func (s *Service) Find(ctx context.Context, q model.Query) (resp model.FindResponse) {
	resp = model.FindResponse{
		Query:       strings.TrimSpace(q.Name),
		Status:      model.StatusOK,
		Agencies:    map[model.Agency][]string{},
		Diagnostics: model.FindDiagnostics{Errors: []string{}},
		Meta:        model.Meta{TraceID: TraceID(ctx)},
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("find: panic recovered", zap.String("query", q.Name), zap.Any("panic", r))
			resp.Status = model.StatusDegraded
			resp.Diagnostics.Errors = append(resp.Diagnostics.Errors, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if c, ok := cache.FromContext(ctx); ok {
		c.Incr(ctx, model.MetricRequestsTotal, 1)
	}
	if q.Blank() {
		resp.Status = model.StatusDegraded
		resp.Diagnostics.Errors = append(resp.Diagnostics.Errors, "missing query")
		return resp
	}

	aliases := s.deps.Expander.Expand(ctx, q)
	resp.Entity = &model.Entity{
		Name:    strings.TrimSpace(q.Name),
		Aliases: aliases,
		Ticker:  q.Ticker,
		Country: q.Country,
	}
	for a, us := range s.deps.Constructor.ForCompany(q.Name, q.Ticker) {
		if slices.Contains(s.opts.Agencies, a) {
			resp.Agencies[a] = us
		}
	}
	return resp
}
