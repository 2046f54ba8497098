// Package llm abstracts the generative model used for rating extraction
// fallback and alias augmentation.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rating-finder/internal/config"
	"github.com/sells-group/rating-finder/internal/resilience"
	"github.com/sells-group/rating-finder/pkg/anthropic"
	"github.com/sells-group/rating-finder/pkg/gemini"
)

// Request is a single-turn generation request. System carries the rules and
// is cached where the provider supports it.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
	JSON      bool
}

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// New builds the configured client. It returns nil, nil when the provider is
// disabled or has no key; callers skip generative stages in that case.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	var c Client
	switch cfg.LLM.Provider {
	case "", "none":
		return nil, nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, nil
		}
		c = NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
	case "gemini":
		if cfg.Gemini.Key == "" {
			return nil, nil
		}
		gc, err := gemini.NewClient(ctx, cfg.Gemini.Key)
		if err != nil {
			return nil, eris.Wrap(err, "llm: gemini client")
		}
		c = NewGemini(gc, cfg.Gemini.Model)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}
	return WithRetry(c, cfg.LLM.MaxAttempts, 500*time.Millisecond), nil
}

type anthropicClient struct {
	api   anthropic.Client
	model string
}

// NewAnthropic adapts a pkg/anthropic client.
func NewAnthropic(api anthropic.Client, model string) Client {
	return &anthropicClient{api: api, model: model}
}

func (c *anthropicClient) Name() string { return "anthropic" }

func (c *anthropicClient) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	temp := 0.0
	mr := anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	}
	if req.System != "" {
		mr.System = anthropic.BuildCachedSystemBlocks(req.System)
	}
	resp, err := c.api.CreateMessage(ctx, mr)
	if err != nil {
		return "", err
	}
	resp.Usage.Log(c.model, "generate")
	return resp.Text(), nil
}

type geminiClient struct {
	api   gemini.Client
	model string
}

// NewGemini adapts a pkg/gemini client.
func NewGemini(api gemini.Client, model string) Client {
	return &geminiClient{api: api, model: model}
}

func (c *geminiClient) Name() string { return "gemini" }

func (c *geminiClient) Generate(ctx context.Context, req Request) (string, error) {
	return c.api.Generate(ctx, gemini.GenerateRequest{
		Model:     c.model,
		System:    req.System,
		Prompt:    req.Prompt,
		MaxTokens: int32(req.MaxTokens),
		JSON:      req.JSON,
	})
}

type retrying struct {
	Client
	cfg resilience.RetryConfig
}

// WithRetry retries transient provider failures (429, 5xx, overloaded,
// network) with linear backoff.
func WithRetry(c Client, attempts int, backoff time.Duration) Client {
	if attempts <= 1 {
		return c
	}
	return &retrying{
		Client: c,
		cfg: resilience.RetryConfig{
			MaxAttempts: attempts,
			Backoff:     backoff,
			ShouldRetry: IsTransient,
			OnRetry:     resilience.RetryLogger("llm", c.Name()),
		},
	}
}

func (r *retrying) Generate(ctx context.Context, req Request) (string, error) {
	out, _, err := resilience.DoVal(ctx, r.cfg, func(ctx context.Context) (string, error) {
		return r.Client.Generate(ctx, req)
	})
	if err != nil {
		zap.L().Debug("llm: generate failed", zap.String("provider", r.Name()), zap.Error(err))
	}
	return out, err
}

// IsTransient reports whether a provider error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if resilience.IsTransient(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"429", "rate limit", "overloaded", "resource_exhausted", "500", "502", "503", "529", "unavailable"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
