package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rating-finder/internal/config"
	"github.com/sells-group/rating-finder/pkg/anthropic"
	"github.com/sells-group/rating-finder/pkg/gemini"
)

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockGemini struct {
	mock.Mock
}

func (m *mockGemini) Generate(ctx context.Context, req gemini.GenerateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func TestAnthropicClient_Generate(t *testing.T) {
	api := &mockAnthropic{}
	api.On("CreateMessage", mock.Anything, mock.MatchedBy(func(r anthropic.MessageRequest) bool {
		return r.Model == "claude-haiku-4-5-20251001" &&
			len(r.System) == 1 && r.System[0].CacheControl != nil &&
			r.Messages[0].Content == "prompt" && r.MaxTokens == 512
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"found":false}`}},
	}, nil)

	c := NewAnthropic(api, "claude-haiku-4-5-20251001")
	out, err := c.Generate(context.Background(), Request{System: "rules", Prompt: "prompt"})
	require.NoError(t, err)
	assert.Equal(t, `{"found":false}`, out)
	assert.Equal(t, "anthropic", c.Name())
	api.AssertExpectations(t)
}

func TestGeminiClient_Generate(t *testing.T) {
	api := &mockGemini{}
	api.On("Generate", mock.Anything, gemini.GenerateRequest{
		Model: "gemini-2.5-flash", System: "rules", Prompt: "p", MaxTokens: 256, JSON: true,
	}).Return(`["Vale"]`, nil)

	c := NewGemini(api, "gemini-2.5-flash")
	out, err := c.Generate(context.Background(), Request{System: "rules", Prompt: "p", MaxTokens: 256, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `["Vale"]`, out)
}

func TestWithRetry_RetriesTransient(t *testing.T) {
	api := &mockGemini{}
	api.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("status 503 unavailable")).Once()
	api.On("Generate", mock.Anything, mock.Anything).Return("ok", nil).Once()

	c := WithRetry(NewGemini(api, "m"), 3, time.Millisecond)
	out, err := c.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	api.AssertNumberOfCalls(t, "Generate", 2)
}

func TestWithRetry_DoesNotRetryAuth(t *testing.T) {
	api := &mockGemini{}
	api.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("API key not valid"))

	c := WithRetry(NewGemini(api, "m"), 3, time.Millisecond)
	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	api.AssertNumberOfCalls(t, "Generate", 1)
}

func TestNew_NoKeyReturnsNil(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = "anthropic"
	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, c)

	cfg.LLM.Provider = "none"
	c, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = "mistral"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_Anthropic(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.MaxAttempts = 2
	cfg.Anthropic.Key = "sk-ant-test"
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "anthropic", c.Name())
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"found":true}`, `{"found":true}`},
		{"fenced json", "```json\n{\"found\":true}\n```", `{"found":true}`},
		{"bare fence", "```\n[\"a\",\"b\"]\n```", `["a","b"]`},
		{"prose around", "Here you go: {\"found\":false} hope it helps", `{"found":false}`},
		{"array", `["Apple", "AAPL"]`, `["Apple", "AAPL"]`},
		{"no json", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("anthropic: 529 overloaded_error")))
	assert.True(t, IsTransient(errors.New("RESOURCE_EXHAUSTED")))
	assert.False(t, IsTransient(errors.New("invalid x-api-key")))
	assert.False(t, IsTransient(nil))
}
