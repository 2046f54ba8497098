package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_AgainstTestServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.5-flash:generateContent"), r.URL.Path)

		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		gen, _ := body["generationConfig"].(map[string]any)
		assert.Equal(t, "application/json", gen["responseMimeType"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "{\"found\": false, \"confidence\": 0}"}]},
				"finishReason": "STOP"
			}]
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), GenerateRequest{
		Model:  "gemini-2.5-flash",
		System: "rules",
		Prompt: "window text",
		JSON:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"found": false, "confidence": 0}`, out)
}

func TestGenerate_ErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), GenerateRequest{Model: "gemini-2.5-flash", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: generate content")
}
