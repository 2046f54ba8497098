package ratings

import (
	"context"
	"time"

	"github.com/sells-group/rating-finder/internal/extract"
	"github.com/sells-group/rating-finder/internal/model"
	"github.com/sells-group/rating-finder/internal/urls"
)

// scraper is the last provider in the chain: it collects evidence from
// agency and investor-relations pages and extracts ratings from it. One is
// created per request and keeps that request's diagnostics.
type scraper struct {
	svc       *Service
	aliases   model.AliasSet
	collectBy time.Time

	windows []model.EvidenceWindow
	diag    model.Diagnostics
}

func (p *scraper) Name() string { return "scraped" }

func (p *scraper) Ratings(ctx context.Context, q model.Query, agencies []model.Agency) ([]model.RatingEntry, error) {
	src := urls.NewSource(p.svc.deps.Constructor, p.svc.deps.IR, q.Ticker)
	src.Agencies = agencies

	// Vendors may have used part of the budget already.
	remaining := time.Until(p.collectBy)
	if remaining <= 0 {
		p.diag.Errors = append(p.diag.Errors, "evidence budget exhausted before scraping")
		return nil, nil
	}
	p.windows, p.diag = p.svc.deps.Orchestrator.Collect(ctx, p.aliases, src, remaining)

	ctx = extract.WithCallBudget(ctx, p.svc.opts.MaxFallbackCalls)
	patternOnly := extract.WithCallBudget(ctx, 0)
	found := make(map[model.Agency]bool)

	var out []model.RatingEntry
	for _, w := range p.windows {
		for _, a := range agencies {
			if w.Agency != "" && w.Agency != a {
				continue
			}
			ectx := ctx
			// Past the request deadline only pattern matching runs.
			if found[a] || ctx.Err() != nil {
				ectx = patternOnly
			}
			res := p.svc.deps.Extractor.Extract(ectx, w, a, q.Name)
			if !res.Found {
				continue
			}
			found[a] = true
			out = append(out, res.Entry(a, w.URL))
		}
	}
	return out, nil
}
