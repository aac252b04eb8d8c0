// Package vectorstore implements C4: nearest-neighbour search against a
// pre-populated collection of note-file embeddings. The wire shape follows
// Qdrant's documented REST search API (as used by original_source's
// clients/vector_store.py), since no Qdrant Go client ships anywhere in
// the retrieved example corpus.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/omars-lab/knowledge-agents/internal/apperr"
	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/models"
)

// Client performs nearest-neighbour search over a named collection.
type Client struct {
	httpClient *http.Client
	baseURL    string
	dimension  int
	timeout    time.Duration
}

// New builds a vector store client from Settings.
func New(settings *config.Settings) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    settings.VectorStoreURL,
		dimension:  settings.EmbeddingDim(),
		timeout:    settings.VectorSearchTimeout,
	}
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			FilePath   string `json:"file_path"`
			FileName   string `json:"file_name"`
			ModifiedAt string `json:"modified_at"`
			SizeBytes  int64  `json:"size_bytes"`
		} `json:"payload"`
	} `json:"result"`
}

// Search returns at most topN references from collection, ordered by the
// store's native ranking (the retrieval stage re-sorts deterministically).
// An empty result set is a legal, non-error outcome.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, topN int) ([]models.NoteReference, error) {
	if c.dimension > 0 && len(vector) != c.dimension {
		return nil, apperr.VectorStore(
			fmt.Sprintf("query vector dimension %d does not match collection dimension %d", len(vector), c.dimension), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(searchRequest{Vector: vector, Limit: topN, WithPayload: true})
	if err != nil {
		return nil, apperr.VectorStore("encoding search request", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.VectorStore("building search request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.VectorStore("calling vector store", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.VectorStore("reading search response", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, apperr.VectorStore(fmt.Sprintf("vector store returned %d", resp.StatusCode), nil)
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperr.VectorStore("parsing search response", err)
	}

	refs := make([]models.NoteReference, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		modifiedAt, _ := time.Parse(time.RFC3339, r.Payload.ModifiedAt)
		refs = append(refs, models.NoteReference{
			FilePath:        r.Payload.FilePath,
			FileName:        r.Payload.FileName,
			ModifiedAt:      modifiedAt,
			SimilarityScore: r.Score,
			SizeBytes:       r.Payload.SizeBytes,
		})
	}
	return refs, nil
}

// EnsureCollection is an idempotent startup-time side effect: it creates the
// named collection with the given vector dimension if it doesn't already
// exist, mirroring original_source's VectorStoreClientManager.ensure_collection.
func (c *Client) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	checkURL := fmt.Sprintf("%s/collections/%s", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		return apperr.VectorStore("building collection check request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.VectorStore("checking collection existence", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	createBody, _ := json.Marshal(map[string]any{
		"vectors": map[string]any{"size": dimension, "distance": "Cosine"},
	})
	createReq, err := http.NewRequestWithContext(ctx, http.MethodPut, checkURL, bytes.NewReader(createBody))
	if err != nil {
		return apperr.VectorStore("building collection create request", err)
	}
	createReq.Header.Set("Content-Type", "application/json")
	createResp, err := c.httpClient.Do(createReq)
	if err != nil {
		return apperr.VectorStore("creating collection", err)
	}
	defer createResp.Body.Close()
	if createResp.StatusCode/100 != 2 {
		return apperr.VectorStore(fmt.Sprintf("collection create returned %d", createResp.StatusCode), nil)
	}
	return nil
}
