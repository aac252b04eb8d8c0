// Package llmclient implements C5: chat/completions calls to the LLM proxy,
// abstracting a standard chat-completions path and a "responses" path that
// natively binds tools, behind one Client interface. Selection is the pure
// function config.Settings.UsesResponsesAPI.
package llmclient

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

// Result is what one Complete call produces: the model's final structured
// JSON text, usage accounting, a handle for header assembly, and the trace
// of tool calls the model made along the way.
type Result struct {
	OutputJSON string
	Usage      models.UsageReport
	Raw        RawHandle
	Trace      []ToolCall
}

// Client is the common interface both API paths implement.
type Client interface {
	// Complete runs one guarded conversation to completion: it drives the
	// tool-call loop (at most req.MaxToolCalls rounds of tool calls) and
	// returns the model's final structured-output JSON text once no further
	// tool calls are requested, or, once the bound is hit, the last text the
	// model produced (an AgentOutputError if it produced none).
	Complete(ctx context.Context, apiToken string, req Request) (Result, error)
}

// New selects the chat-completions or responses client per settings.
func New(settings *config.Settings) Client {
	base := fmt.Sprintf("http://%s:%d", settings.ProxyHost, settings.ProxyPort)
	shared := &httpBase{
		httpClient: &http.Client{},
		baseURL:    base,
		model:      settings.CompletionModel,
		timeout:    settings.LLMCallTimeout,
	}
	if settings.UsesResponsesAPI() {
		return &responsesClient{httpBase: shared}
	}
	return &chatCompletionsClient{httpBase: shared}
}

type httpBase struct {
	httpClient *http.Client
	baseURL    string
	model      string
	timeout    time.Duration
}

func (b *httpBase) doJSON(ctx context.Context, path string, apiToken string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiToken)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return respBody, resp.StatusCode, nil
}

// classifyHTTPError maps a non-2xx status/transport error to an LLMError
// kind.
func classifyHTTPError(status int, err error) *apperr.Error {
	if err != nil {
		return apperr.LLM(apperr.LLMConnection, err.Error(), err)
	}
	switch status {
	case http.StatusTooManyRequests:
		return apperr.LLM(apperr.LLMRateLimit, "proxy returned 429", nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.LLM(apperr.LLMAuth, fmt.Sprintf("proxy returned %d", status), nil)
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return apperr.LLM(apperr.LLMTimeout, fmt.Sprintf("proxy returned %d", status), nil)
	default:
		return apperr.LLM(apperr.LLMOther, fmt.Sprintf("proxy returned %d", status), nil)
	}
}

func toOpenAITools(tools []Tool) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.InputSchema,
			},
		})
	}
	return out
}

func findTool(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

func mergeUsage(dst *models.UsageReport, in, out, total *int) {
	if in != nil {
		if dst.InputTokens == nil {
			dst.InputTokens = new(int)
		}
		*dst.InputTokens += *in
	}
	if out != nil {
		if dst.OutputTokens == nil {
			dst.OutputTokens = new(int)
		}
		*dst.OutputTokens += *out
	}
	if total != nil {
		if dst.TotalTokens == nil {
			dst.TotalTokens = new(int)
		}
		*dst.TotalTokens += *total
	}
}
