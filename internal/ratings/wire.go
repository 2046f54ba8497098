package ratings

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/rating-finder/internal/alias"
	"github.com/sells-group/rating-finder/internal/cache"
	"github.com/sells-group/rating-finder/internal/config"
	"github.com/sells-group/rating-finder/internal/evidence"
	"github.com/sells-group/rating-finder/internal/extract"
	"github.com/sells-group/rating-finder/internal/fetcher"
	"github.com/sells-group/rating-finder/internal/llm"
	"github.com/sells-group/rating-finder/internal/resilience"
	"github.com/sells-group/rating-finder/internal/urls"
	"github.com/sells-group/rating-finder/internal/vendor"
	"github.com/sells-group/rating-finder/pkg/ratingsapi"
)

// vendorCooldown is how long a failing vendor is skipped.
const vendorCooldown = 5 * time.Minute

// Build wires a Service from configuration.
func Build(ctx context.Context, cfg *config.Config) (*Service, error) {
	gen, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "ratings: build llm")
	}

	var aliasLLM llm.Client
	if cfg.LLM.AliasAugment {
		aliasLLM = gen
	}

	fopts := fetcher.Options{
		Timeout:           secs(cfg.Fetch.TimeoutSecs),
		MaxRetries:        cfg.Fetch.MaxRetries,
		BackoffBase:       time.Duration(cfg.Fetch.BackoffBaseMs) * time.Millisecond,
		BlockedMultiplier: cfg.Fetch.BlockedMultiplier,
		MaxBodyBytes:      cfg.Fetch.MaxBodyBytes,
		HostRate:          rate.Limit(cfg.Fetch.HostRate),
	}
	if cfg.Fetch.BrowserFallback {
		fopts.Browser = fetcher.NewChromeBrowser(secs(cfg.Fetch.BrowserTimeoutS), cfg.Fetch.BrowserPath)
	}

	budget := time.Duration(cfg.Evidence.BudgetMs) * time.Millisecond
	table := urls.DefaultTable()

	deps := Deps{
		Expander:    alias.NewExpander(alias.Options{MaxAliases: cfg.Evidence.MaxAliases, LLM: aliasLLM}),
		Constructor: urls.NewConstructor(table),
		IR:          urls.NewIRGuesser(table),
		Orchestrator: evidence.New(fetcher.NewHTTPFetcher(fopts), evidence.Options{
			Concurrency:    cfg.Evidence.Concurrency,
			Budget:         budget,
			MaxWindows:     cfg.Evidence.MaxWindows,
			MaxWindowChars: cfg.Evidence.MaxWindowChars,
			BlockThreshold: cfg.Evidence.BlockThreshold,
			Metrics:        cache.ContextCounter{},
		}),
		Extractor: extract.New(extract.Options{
			LLM:                 gen,
			MaxChars:            cfg.Extract.MaxChars,
			ConfidenceThreshold: cfg.Extract.ConfidenceThreshold,
			Timeout:             secs(cfg.Extract.TimeoutSecs),
		}),
		VendorBreaker: resilience.NewBreaker(3, vendorCooldown),
	}

	if cfg.Vendor.Key != "" && cfg.Vendor.BaseURL != "" {
		client := ratingsapi.NewClient(cfg.Vendor.Key, cfg.Vendor.BaseURL,
			ratingsapi.WithTimeout(secs(cfg.Vendor.TimeoutSecs)))
		deps.Vendors = append(deps.Vendors, vendor.NewAPIProvider(client))
	}

	generative := "none"
	if gen != nil {
		generative = gen.Name()
	}
	zap.L().Info("ratings: service ready",
		zap.String("llm", generative),
		zap.Int("vendors", len(deps.Vendors)),
		zap.Bool("browser_fallback", cfg.Fetch.BrowserFallback),
		zap.Bool("institutional", cfg.Institutional.Enabled),
	)

	return New(deps, Options{
		TTL:              cfg.Cache.TTL(),
		Budget:           budget,
		ExtractGrace:     time.Duration(cfg.Evidence.ExtractGraceMs) * time.Millisecond,
		RequestTimeout:   secs(cfg.Server.RequestTimeoutS),
		SearchAliases:    cfg.Evidence.SearchAliases,
		MaxFallbackCalls: cfg.Extract.MaxFallbackCalls,
		Institutional:    cfg.Institutional.Enabled,
		RequireDate:      cfg.Institutional.RequireDate,
	}), nil
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }
