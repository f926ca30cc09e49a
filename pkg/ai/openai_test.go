package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionsStub(t *testing.T, handler func(w http.ResponseWriter, req chatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
}

func TestOpenAIComplete(t *testing.T) {
	t.Parallel()

	srv := completionsStub(t, func(w http.ResponseWriter, req chatRequest) {
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "json")
		assert.Equal(t, "a user object", req.Messages[1].Content)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{"role": "assistant", "content": "```json\n{\"name\":\"ada\"}\n```"},
			}},
			"usage": map[string]any{"total_tokens": 12},
		})
	})
	defer srv.Close()

	p := NewOpenAI("key", WithBaseURL(srv.URL))
	resp, err := p.Complete(context.Background(), &CompletionRequest{
		Prompt:     "a user object",
		FormatHint: "json",
	})
	require.NoError(t, err)

	// Fences are stripped before the caller ever sees the text.
	assert.Equal(t, `{"name":"ada"}`, resp.Text)
	assert.Equal(t, 12, resp.TokensUsed)
}

func TestOpenAICompleteAPIError(t *testing.T) {
	t.Parallel()

	srv := completionsStub(t, func(w http.ResponseWriter, req chatRequest) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key"},
		})
	})
	defer srv.Close()

	p := NewOpenAI("bad", WithBaseURL(srv.URL))
	_, err := p.Complete(context.Background(), &CompletionRequest{Prompt: "x"})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "openai", provErr.Provider)
	assert.Contains(t, provErr.Message, "invalid api key")
}

func TestOpenAICompleteEmptyChoices(t *testing.T) {
	t.Parallel()

	srv := completionsStub(t, func(w http.ResponseWriter, req chatRequest) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	defer srv.Close()

	p := NewOpenAI("", WithBaseURL(srv.URL))
	_, err := p.Complete(context.Background(), &CompletionRequest{Prompt: "x"})
	assert.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\nhello\n```", "hello"},
		{"leading whitespace", "  ```\nx\n```  ", "x"},
		{"unclosed fence", "```json\n{\"a\":1}", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}
