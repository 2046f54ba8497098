package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/rating-finder/internal/resilience"
)

// ErrChallenge marks a 2xx response that turned out to be a bot challenge.
var ErrChallenge = eris.New("fetcher: bot challenge page")

// Options configures the HTTP fetcher. Zero values take the defaults.
type Options struct {
	Timeout           time.Duration
	MaxRetries        int
	BackoffBase       time.Duration
	BlockedMultiplier float64
	MaxBodyBytes      int64
	UserAgents        []string
	HostRate          rate.Limit
	HostBurst         int

	// Browser, when set, renders pages that stay blocked after retries.
	Browser Browser

	// Client overrides the underlying http.Client (tests).
	Client *http.Client
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BlockedMultiplier <= 0 {
		o.BlockedMultiplier = 3
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.HostRate <= 0 {
		o.HostRate = 4
	}
	if o.HostBurst <= 0 {
		o.HostBurst = 4
	}
	return o
}

// HTTPFetcher implements Fetcher over net/http.
type HTTPFetcher struct {
	client   *http.Client
	opts     Options
	limiters *hostLimiters
	agents   *uaRotator
}

// NewHTTPFetcher creates a fetcher.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	opts = opts.withDefaults()
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPFetcher{
		client:   client,
		opts:     opts,
		limiters: newHostLimiters(opts.HostRate, opts.HostBurst),
		agents:   newUARotator(opts.UserAgents),
	}
}

// Fetch retrieves rawURL. 404 ends immediately; every other failure is
// retried with linear backoff (tripled after a 403).
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (res Result) {
	res.URL = rawURL
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("fetcher: recovered panic", zap.String("url", rawURL), zap.Any("panic", r))
			res = Result{URL: rawURL, Outcome: OutcomeError, Err: eris.Errorf("fetcher: panic: %v", r)}
		}
	}()

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		res.Outcome = OutcomeError
		res.Err = eris.Errorf("fetcher: invalid url %q", rawURL)
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	limiter := f.limiters.get(u.Host)
	cfg := resilience.RetryConfig{
		MaxAttempts:       f.opts.MaxRetries,
		Backoff:           f.opts.BackoffBase,
		BlockedMultiplier: f.opts.BlockedMultiplier,
		OnRetry:           resilience.RetryLogger("fetcher", rawURL),
	}

	body, attempts, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		return f.get(ctx, rawURL, u.Host, limiter)
	})
	res.Attempts = attempts
	res.Status = resilience.StatusOf(err)

	switch {
	case err == nil:
		res.Body = body
		res.Status = http.StatusOK
		res.Outcome = OutcomeOK
	case resilience.IsNotFound(err):
		res.Outcome = OutcomeNotFound
		res.Err = err
	case resilience.IsBlocked(err):
		res.Outcome = OutcomeBlocked
		res.Err = err
		if f.opts.Browser != nil {
			return f.render(ctx, res)
		}
	default:
		res.Outcome = OutcomeError
		res.Err = err
	}

	zap.L().Debug("fetcher: done",
		zap.String("url", rawURL),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("status", res.Status),
		zap.Int("attempts", res.Attempts),
	)
	return res
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL, host string, limiter *AdaptiveLimiter) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	setBrowserHeaders(req.Header, f.agents.pick())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusTooManyRequests:
		limiter.OnRateLimit(host)
		return nil, resilience.NewStatusError(status, nil)
	case status < 200 || status >= 300:
		if blocked, kind := DetectBlock(status, resp.Header, body); blocked {
			return nil, resilience.NewStatusError(http.StatusForbidden, fmt.Errorf("%s challenge", kind))
		}
		return nil, resilience.NewStatusError(status, nil)
	}

	if blocked, kind := DetectBlock(status, resp.Header, body); blocked {
		return nil, resilience.NewStatusError(http.StatusForbidden, fmt.Errorf("%s: %w", kind, ErrChallenge))
	}

	limiter.OnSuccess()
	return body, nil
}

func (f *HTTPFetcher) render(ctx context.Context, res Result) Result {
	html, err := f.opts.Browser.Render(ctx, res.URL)
	if err != nil {
		zap.L().Debug("fetcher: browser fallback failed", zap.String("url", res.URL), zap.Error(err))
		return res
	}
	if blocked, _ := DetectBlock(http.StatusOK, http.Header{}, []byte(html)); blocked {
		return res
	}
	res.Body = []byte(html)
	res.Status = http.StatusOK
	res.Outcome = OutcomeOK
	res.Err = nil
	return res
}
