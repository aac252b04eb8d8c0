// Package mcptool implements C6: a best-effort adapter onto the NotePlan
// MCP tool service. The service's contract is a flat REST POST with a JSON
// body and JSON response, not the JSON-RPC MCP transport, so it talks
// plain net/http rather than a JSON-RPC MCP client library.
package mcptool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/omars-lab/knowledge-agents/internal/config"
)

// Client resolves noteplan:// x-callback-url links for cited files. Failures
// are never fatal to the overall request: callers treat a returned error as
// "no link available" and proceed without it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// New builds an MCP tool client from Settings.
func New(settings *config.Settings) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    settings.MCPServiceURL,
		timeout:    settings.ToolCallTimeout,
	}
}

type deriveRequest struct {
	FilePath string `json:"file_path"`
}

type deriveResponse struct {
	XCallbackURL string `json:"url"`
}

// DeriveXCallbackURL asks the MCP tool service for the noteplan:// link
// corresponding to filePath. Returns ("", err) on any failure; callers are
// expected to treat that as absence rather than propagate it.
func (c *Client) DeriveXCallbackURL(ctx context.Context, filePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(deriveRequest{FilePath: filePath})
	if err != nil {
		return "", err
	}

	url := c.baseURL + "/tools/derive_xcallback_url_from_noteplan_file"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("mcp tool service returned %d", resp.StatusCode)
	}

	var parsed deriveResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", err
	}
	return parsed.XCallbackURL, nil
}

// AsTool exposes DeriveXCallbackURL as an llmclient.Tool-compatible handler
// shape (argsJSON []byte) (any, error)), used when the synthesis agent binds
// it directly into the model's tool set rather than calling it during
// assembly.
func (c *Client) AsTool(ctx context.Context, argsJSON []byte) (any, error) {
	var args deriveRequest
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, err
	}
	url, err := c.DeriveXCallbackURL(ctx, args.FilePath)
	if err != nil {
		return nil, err
	}
	return deriveResponse{XCallbackURL: url}, nil
}
