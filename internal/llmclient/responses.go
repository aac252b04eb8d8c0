package llmclient

import (
	"context"
	"encoding/json"

	"github.com/omars-lab/knowledge-agents/internal/apperr"
)

// responsesClient drives the "responses" API path, which natively binds
// tools as first-class items in the input/output arrays rather than via a
// separate tool_calls field on a chat message.
type responsesClient struct {
	*httpBase
}

type respInputItem struct {
	Role    string `json:"role,omitempty"`
	Type    string `json:"type,omitempty"` // "message" | "function_call_output"
	Content string `json:"content,omitempty"`
	CallID  string `json:"call_id,omitempty"`
	Output  string `json:"output,omitempty"`
}

type respOutputItem struct {
	Type      string `json:"type"` // "message" | "function_call"
	Content   []struct {
		Text string `json:"text"`
	} `json:"content,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

type respRequest struct {
	Model        string          `json:"model"`
	Instructions string          `json:"instructions,omitempty"`
	Input        []respInputItem `json:"input"`
	Tools        []map[string]any `json:"tools,omitempty"`
	Temperature  float64         `json:"temperature,omitempty"`
}

type respResponse struct {
	Model  string           `json:"model"`
	Output []respOutputItem `json:"output"`
	Usage  struct {
		InputTokens  *int `json:"input_tokens"`
		OutputTokens *int `json:"output_tokens"`
		TotalTokens  *int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *responsesClient) Complete(ctx context.Context, apiToken string, req Request) (Result, error) {
	input := make([]respInputItem, 0, len(req.Messages))
	for _, m := range req.Messages {
		input = append(input, respInputItem{Role: m.Role, Type: "message", Content: m.Content})
	}

	maxCalls := req.MaxToolCalls
	if maxCalls <= 0 {
		maxCalls = 8
	}

	result := Result{Raw: RawHandle{ModelName: c.model, APIType: "responses"}}

	for round := 0; round <= maxCalls; round++ {
		payload := respRequest{
			Model:        c.model,
			Instructions: req.SystemPrompt,
			Input:        input,
			Tools:        toOpenAITools(req.Tools),
			Temperature:  req.Temperature,
		}

		body, status, err := c.doJSON(ctx, "/v1/responses", apiToken, payload)
		if err != nil || status/100 != 2 {
			return result, classifyHTTPError(status, err)
		}

		var parsed respResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return result, apperr.LLM(apperr.LLMOther, "malformed responses-api response", err)
		}
		if parsed.Model != "" {
			result.Raw.ModelName = parsed.Model
		}
		mergeUsage(&result.Usage, parsed.Usage.InputTokens, parsed.Usage.OutputTokens, parsed.Usage.TotalTokens)

		var pendingCalls []respOutputItem
		var finalText string
		for _, item := range parsed.Output {
			switch item.Type {
			case "function_call":
				pendingCalls = append(pendingCalls, item)
			case "message":
				for _, c := range item.Content {
					finalText += c.Text
				}
			}
		}

		if len(pendingCalls) == 0 {
			result.OutputJSON = finalText
			return result, nil
		}
		if finalText != "" {
			result.OutputJSON = finalText
		}
		if round == maxCalls {
			break
		}

		for _, call := range pendingCalls {
			tool, ok := findTool(req.Tools, call.Name)
			var resultStr string
			var callErr error
			if !ok {
				callErr = apperr.AgentOutput("model requested unknown tool "+call.Name, nil)
			} else {
				out, err := tool.Handler(ctx, []byte(call.Arguments))
				if err != nil {
					callErr = err
					resultStr = "error: " + err.Error()
				} else {
					b, _ := json.Marshal(out)
					resultStr = string(b)
				}
			}
			result.Trace = append(result.Trace, ToolCall{
				ToolName: call.Name,
				Args:     call.Arguments,
				Result:   resultStr,
				Err:      callErr,
			})
			input = append(input, respInputItem{Type: "function_call_output", CallID: call.CallID, Output: resultStr})
		}
	}

	if result.OutputJSON == "" {
		return result, apperr.AgentOutput("tool-call budget exhausted with no structured output", nil)
	}
	return result, nil
}

var _ Client = (*responsesClient)(nil)
