// Package embeddings implements C3: a client producing a fixed-dimension
// embedding vector for a query string via the LLM proxy's OpenAI-compatible
// embeddings endpoint.
package embeddings

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
)

// Client embeds query text via an OpenAI-compatible /v1/embeddings endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	dimension  int
	timeout    time.Duration
}

// New builds an embedding client from Settings. The forwarded bearer token
// is passed per call to Embed.
func New(settings *config.Settings) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    fmt.Sprintf("http://%s:%d", settings.ProxyHost, settings.ProxyPort),
		model:      settings.EmbeddingModel,
		dimension:  settings.EmbeddingDim(),
		timeout:    settings.EmbeddingTimeout,
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns a vector of length Client.dimension for text, or an
// EmbeddingError on non-2xx, timeout, or dimension mismatch.
func (c *Client) Embed(ctx context.Context, apiToken, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: []string{text}})
	if err != nil {
		return nil, apperr.Embedding("encoding embeddings request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Embedding("building embeddings request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Embedding("calling embeddings endpoint", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Embedding("reading embeddings response", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, apperr.Embedding(fmt.Sprintf("embeddings endpoint returned %d", resp.StatusCode), nil)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperr.Embedding("parsing embeddings response", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, apperr.Embedding("embeddings endpoint returned no vector", nil)
	}

	vec := parsed.Data[0].Embedding
	if c.dimension > 0 && len(vec) != c.dimension {
		return nil, apperr.Embedding(
			fmt.Sprintf("embedding dimension mismatch: got %d, expected %d", len(vec), c.dimension), nil)
	}

	return vec, nil
}

// Dimension reports the configured embedding dimension.
func (c *Client) Dimension() int { return c.dimension }
