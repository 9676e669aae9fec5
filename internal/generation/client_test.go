package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumeai-platform/resumeai/internal/config"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float32 `json:"temperature"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.OpenAIConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/v1",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200},
	})
}

func TestClient_Complete(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "  Improved resume text\n")
	})

	out, err := client.Complete(context.Background(), CoverPrompt("Backend Engineer", "Acme", "Go, Postgres"))
	require.NoError(t, err)
	assert.Equal(t, "Improved resume text", out.Content)
	assert.Equal(t, 120, out.PromptTokens)
	assert.Equal(t, 80, out.CompletionTokens)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.InDelta(t, 0.5, got.Temperature, 0.001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "Backend Engineer at Acme")
}

func TestClient_Complete_EmptyOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeCompletion(w, "   ")
	})

	_, err := client.Complete(context.Background(), ResumePrompt("resume", ""))
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestClient_Complete_ProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	})

	_, err := client.Complete(context.Background(), ResumePrompt("resume", ""))
	require.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "Rate limit reached")
	assert.Contains(t, err.Error(), "429")
}

func TestClient_Complete_CanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeCompletion(w, "late")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, ResumePrompt("resume", ""))
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractDetail(t *testing.T) {
	assert.Equal(t, "model not found", extractDetail([]byte(`{"detail":"model not found"}`)))
	assert.Empty(t, extractDetail([]byte(`not json`)))
}
