package vectorstore_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omars-lab/knowledge-agents/internal/apperr"
	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/vectorstore"
)

func settingsForServer(t *testing.T, server *httptest.Server, dimension int) *config.Settings {
	t.Helper()
	return &config.Settings{
		VectorStoreURL:      server.URL,
		EmbeddingModel:      "m",
		EmbeddingDimension:  map[string]int{"m": dimension},
		VectorSearchTimeout: 2 * time.Second,
	}
}

func TestSearchReturnsReferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/notes/points/search", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.88, "payload": map[string]any{
					"file_path": "a.md", "file_name": "a.md", "modified_at": "2026-07-01T00:00:00Z", "size_bytes": 128,
				}},
			},
		})
	}))
	defer server.Close()

	client := vectorstore.New(settingsForServer(t, server, 3))
	refs, err := client.Search(context.Background(), "notes", []float32{0.1, 0.2, 0.3}, 5)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "a.md", refs[0].FilePath)
	assert.Equal(t, 0.88, refs[0].SimilarityScore)
}

func TestSearchReturnsErrorOnDimensionMismatch(t *testing.T) {
	client := vectorstore.New(&config.Settings{
		VectorStoreURL:      "http://unused",
		EmbeddingModel:      "m",
		EmbeddingDimension:  map[string]int{"m": 5},
		VectorSearchTimeout: time.Second,
	})
	_, err := client.Search(context.Background(), "notes", []float32{0.1, 0.2}, 5)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindVectorStore))
}

func TestEnsureCollectionCreatesMissingCollection(t *testing.T) {
	created := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	client := vectorstore.New(settingsForServer(t, server, 3))
	err := client.EnsureCollection(context.Background(), "notes", 3)
	require.NoError(t, err)
	assert.True(t, created)
}
