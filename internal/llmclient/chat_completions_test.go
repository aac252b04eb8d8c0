package llmclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/llmclient"
)

func settingsForServer(t *testing.T, server *httptest.Server) *config.Settings {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return &config.Settings{
		ProxyHost:      u.Hostname(),
		ProxyPort:      port,
		CompletionModel: "gpt-4o-mini",
		LLMCallTimeout: 5 * time.Second,
	}
}

func TestChatCompletionsReturnsFinalTextWhenNoToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"answer":"hi"}`}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer server.Close()

	client := llmclient.New(settingsForServer(t, server))
	result, err := client.Complete(context.Background(), "test-token", llmclient.Request{
		SystemPrompt: "system", Messages: []llmclient.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"hi"}`, result.OutputJSON)
	require.NotNil(t, result.Usage.TotalTokens)
	assert.Equal(t, 15, *result.Usage.TotalTokens)
}

func TestChatCompletionsDrivesToolCallLoop(t *testing.T) {
	round := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		round++
		if round == 1 {
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{
					"message": map[string]any{
						"role": "assistant",
						"tool_calls": []map[string]any{{
							"id": "call-1", "type": "function",
							"function": map[string]any{"name": "lookup", "arguments": `{"x":1}`},
						}},
					},
				}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"answer":"done"}`}},
			},
		})
	}))
	defer server.Close()

	called := false
	client := llmclient.New(settingsForServer(t, server))
	result, err := client.Complete(context.Background(), "token", llmclient.Request{
		SystemPrompt: "system",
		Messages:     []llmclient.Message{{Role: "user", Content: "hi"}},
		Tools: []llmclient.Tool{{
			Name: "lookup",
			Handler: func(ctx context.Context, argsJSON []byte) (any, error) {
				called = true
				return map[string]string{"ok": "true"}, nil
			},
		}},
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, `{"answer":"done"}`, result.OutputJSON)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "lookup", result.Trace[0].ToolName)
}

func TestChatCompletionsClassifiesRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := llmclient.New(settingsForServer(t, server))
	_, err := client.Complete(context.Background(), "token", llmclient.Request{Messages: []llmclient.Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "rate_limit"))
}
