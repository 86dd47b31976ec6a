package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/sage/pkg/retry"
)

type chatRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test"}, nil)
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8},
	})
}

func writeAPIError(w http.ResponseWriter, status int, code, typ string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": "upstream says no", "type": typ, "code": code},
	})
}

func TestCompleteSendsSystemAndUser(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "  Fenerbahçe  ")
	}).With(Options{Model: "gpt-4", Temperature: 0.3, MaxTokens: 100})

	text, err := c.Complete(context.Background(), "Sen bir sports uzmanısın.", "En çok şampiyon olan takım?")
	require.NoError(t, err)
	assert.Equal(t, "Fenerbahçe", text)

	assert.Equal(t, "gpt-4", got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	assert.InDelta(t, 0.3, got.Temperature, 0.001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "En çok şampiyon olan takım?", got.Messages[1].Content)
}

func TestCompleteEmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "   ")
	})

	_, err := c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, retry.Fatal, Classify(err))
}

func TestCompleteErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		typ    string
		want   error
		class  retry.Class
	}{
		{"rate limited", http.StatusTooManyRequests, "rate_limit_exceeded", "requests", ErrRateLimited, retry.RateLimited},
		{"quota", http.StatusTooManyRequests, "insufficient_quota", "insufficient_quota", ErrQuotaExceeded, retry.QuotaExceeded},
		{"auth", http.StatusUnauthorized, "invalid_api_key", "invalid_request_error", ErrAuth, retry.AuthError},
		{"server error", http.StatusInternalServerError, "internal_server_error", "server_error", ErrTransient, retry.Transient},
		{"bad gateway", http.StatusBadGateway, "", "server_error", ErrTransient, retry.Transient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, tt.status, tt.code, tt.typ)
			})

			_, err := c.Complete(context.Background(), "s", "u")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.class, Classify(err))
		})
	}
}

func TestCompleteBadRequestIsFatal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusBadRequest, "context_length_exceeded", "invalid_request_error")
	})

	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Equal(t, retry.Fatal, Classify(err))
}

func TestWithKeepsUnsetOptions(t *testing.T) {
	base := New(Config{Options: Options{Model: "gpt-4", Temperature: 0.7, MaxTokens: 300}}, nil)
	derived := base.With(Options{MaxTokens: 500})

	assert.Equal(t, Options{Model: "gpt-4", Temperature: 0.7, MaxTokens: 500}, derived.Options())
	assert.Equal(t, 300, base.Options().MaxTokens)
}

func TestClassifyUnknown(t *testing.T) {
	assert.Equal(t, retry.Fatal, Classify(errors.New("boom")))
}
