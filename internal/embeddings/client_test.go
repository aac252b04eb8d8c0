package embeddings_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omars-lab/knowledge-agents/internal/apperr"
	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/embeddings"
)

func settingsForServer(t *testing.T, server *httptest.Server, dimension int) *config.Settings {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return &config.Settings{
		ProxyHost:          u.Hostname(),
		ProxyPort:          port,
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDimension: map[string]int{"text-embedding-3-small": dimension},
		EmbeddingTimeout:   2 * time.Second,
	}
}

func TestEmbedReturnsVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer server.Close()

	client := embeddings.New(settingsForServer(t, server, 3))
	vector, err := client.Embed(context.Background(), "token", "what did I do last week?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, 3, client.Dimension())
}

func TestEmbedReturnsErrorOnDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2}}},
		})
	}))
	defer server.Close()

	client := embeddings.New(settingsForServer(t, server, 3))
	_, err := client.Embed(context.Background(), "token", "query")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindEmbedding))
}

func TestEmbedReturnsErrorOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := embeddings.New(settingsForServer(t, server, 3))
	_, err := client.Embed(context.Background(), "token", "query")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindEmbedding))
}
