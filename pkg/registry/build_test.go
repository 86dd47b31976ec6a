package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/sage/pkg/cache/memory"
	"github.com/pario-ai/sage/pkg/classifier"
	"github.com/pario-ai/sage/pkg/config"
	"github.com/pario-ai/sage/pkg/llm"
	"github.com/pario-ai/sage/pkg/local"
	"github.com/pario-ai/sage/pkg/models"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type fakeOpenAI struct {
	mu       sync.Mutex
	requests []chatRequest
	reply    func(req chatRequest) (int, string)
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	status, content := f.reply(req)
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": content, "type": "invalid_request_error", "code": "invalid_api_key"},
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	})
}

func testDeps(t *testing.T, fake *fakeOpenAI) Deps {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c := memory.New(time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	return Deps{
		LLM:   llm.New(llm.Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test"}, nil),
		Cache: c,
		Retry: NewRetryPolicy(config.RetryConfig{MaxAttempts: 1}, nil),
		Now:   func() time.Time { return time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC) },
	}
}

func TestBuildServiceEndToEnd(t *testing.T) {
	fake := &fakeOpenAI{reply: func(req chatRequest) (int, string) {
		if req.Messages[0].Content == classifier.Prompt {
			return http.StatusOK, "food"
		}
		return http.StatusOK, "Mercimek çorbası"
	}}
	cfg := config.Default()
	svc, err := BuildService(cfg, testDeps(t, fake))
	require.NoError(t, err)

	a := svc.Ask(context.Background(), "Akşam ne pişireyim?")

	assert.Equal(t, models.ExpertFood, a.Expert)
	assert.Equal(t, models.SourceGeneration, a.Source)
	assert.Equal(t, "Mercimek çorbası", a.Text)

	require.Len(t, fake.requests, 2)
	assert.Equal(t, 100, fake.requests[0].MaxTokens, "classifier uses its own token budget")
	assert.Equal(t, 300, fake.requests[1].MaxTokens)
	assert.True(t, strings.HasPrefix(fake.requests[1].Messages[0].Content, "Sen bir food uzmanısın."))
	assert.Equal(t, "gpt-4", fake.requests[1].Model)
}

func TestBuildRegistersConfiguredExperts(t *testing.T) {
	fake := &fakeOpenAI{reply: func(chatRequest) (int, string) { return http.StatusOK, "x" }}
	reg, err := Build(config.Default(), testDeps(t, fake))
	require.NoError(t, err)

	var ids []models.ExpertID
	for _, info := range reg.Experts() {
		ids = append(ids, info.ID)
	}
	assert.Equal(t, models.Experts, ids)
}

func TestBuildWiresLocalKnowledge(t *testing.T) {
	fake := &fakeOpenAI{reply: func(chatRequest) (int, string) { return http.StatusUnauthorized, "bad key" }}
	svc, err := BuildService(config.Default(), testDeps(t, fake))
	require.NoError(t, err)

	a := svc.AskExpert(context.Background(), models.ExpertGeneral, "Bugün günlerden ne?")

	assert.Equal(t, models.SourceLocal, a.Source)
	assert.Equal(t, "Bugün "+local.FormatDate(time.Date(2026, 10, 14, 13, 0, 0, 0, time.UTC)), a.Text)
	assert.Len(t, fake.requests, 1, "auth failures are not retried")
}

func TestBuildUnresolvedCarriesAuthMessage(t *testing.T) {
	fake := &fakeOpenAI{reply: func(chatRequest) (int, string) { return http.StatusUnauthorized, "bad key" }}
	svc, err := BuildService(config.Default(), testDeps(t, fake))
	require.NoError(t, err)

	a := svc.AskExpert(context.Background(), models.ExpertSports, "Dünya kupası kimde?")

	assert.Equal(t, models.OutcomeUnresolved, a.Outcome)
	assert.Contains(t, a.Text, "API yapılandırma hatası")
}

func TestBuildRejectsUnknownExpert(t *testing.T) {
	fake := &fakeOpenAI{reply: func(chatRequest) (int, string) { return http.StatusOK, "x" }}
	cfg := config.Default()
	cfg.Experts = append(cfg.Experts, config.ExpertConfig{ID: "music"})

	_, err := Build(cfg, testDeps(t, fake))
	assert.ErrorContains(t, err, "unknown expert id")
}

func TestBuildRequiresLLM(t *testing.T) {
	_, err := Build(config.Default(), Deps{})
	assert.Error(t, err)
}
