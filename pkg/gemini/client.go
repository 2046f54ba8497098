// Package gemini is a thin wrapper over google.golang.org/genai for
// single-turn text generation.
package gemini

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// Client defines the Gemini operations used by the service.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is a single-turn generation request.
type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int32
	JSON        bool
}

type sdkClient struct {
	client *genai.Client
}

// Option adjusts the genai client config.
type Option func(*genai.ClientConfig)

// WithBaseURL points the client at a different endpoint (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = u
	}
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, o := range opts {
		o(cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = req.MaxTokens
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(req.Prompt)},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", eris.Wrap(err, "gemini: generate content")
	}
	return resp.Text(), nil
}
