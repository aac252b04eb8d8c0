package llmclient

import (
	"context"
	"encoding/json"

	"github.com/omars-lab/knowledge-agents/internal/apperr"
)

// chatCompletionsClient drives the standard OpenAI-compatible
// /v1/chat/completions endpoint, including its function-calling tool loop.
type chatCompletionsClient struct {
	*httpBase
}

type ccMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content,omitempty"`
	ToolCalls  []ccToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type ccToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type ccRequest struct {
	Model       string          `json:"model"`
	Messages    []ccMessage     `json:"messages"`
	Tools       []map[string]any `json:"tools,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type ccResponse struct {
	Choices []struct {
		Message      ccMessage `json:"message"`
		FinishReason string    `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     *int `json:"prompt_tokens"`
		CompletionTokens *int `json:"completion_tokens"`
		TotalTokens      *int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

func (c *chatCompletionsClient) Complete(ctx context.Context, apiToken string, req Request) (Result, error) {
	messages := []ccMessage{{Role: "system", Content: req.SystemPrompt}}
	for _, m := range req.Messages {
		messages = append(messages, ccMessage{Role: m.Role, Content: m.Content})
	}

	maxCalls := req.MaxToolCalls
	if maxCalls <= 0 {
		maxCalls = 8
	}

	result := Result{Raw: RawHandle{ModelName: c.model, APIType: "chat_completions"}}

	for round := 0; round <= maxCalls; round++ {
		payload := ccRequest{
			Model:       c.model,
			Messages:    messages,
			Tools:       toOpenAITools(req.Tools),
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}

		body, status, err := c.doJSON(ctx, "/v1/chat/completions", apiToken, payload)
		if err != nil || status/100 != 2 {
			return result, classifyHTTPError(status, err)
		}

		var parsed ccResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return result, apperr.LLM(apperr.LLMOther, "malformed chat completions response", err)
		}
		if parsed.Model != "" {
			result.Raw.ModelName = parsed.Model
		}
		mergeUsage(&result.Usage, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, parsed.Usage.TotalTokens)

		if len(parsed.Choices) == 0 {
			return result, apperr.LLM(apperr.LLMOther, "chat completions returned no choices", nil)
		}
		choice := parsed.Choices[0]

		if len(choice.Message.ToolCalls) == 0 {
			result.OutputJSON = choice.Message.Content
			return result, nil
		}
		if choice.Message.Content != "" {
			result.OutputJSON = choice.Message.Content
		}
		if round == maxCalls {
			break
		}

		// Tool-call round: execute each requested tool and fold results
		// back into the conversation, then loop.
		messages = append(messages, choice.Message)
		for _, tc := range choice.Message.ToolCalls {
			tool, ok := findTool(req.Tools, tc.Function.Name)
			var resultStr string
			var callErr error
			if !ok {
				callErr = apperr.AgentOutput("model requested unknown tool "+tc.Function.Name, nil)
			} else {
				out, err := tool.Handler(ctx, []byte(tc.Function.Arguments))
				if err != nil {
					callErr = err
					resultStr = "error: " + err.Error()
				} else {
					b, _ := json.Marshal(out)
					resultStr = string(b)
				}
			}
			result.Trace = append(result.Trace, ToolCall{
				ToolName: tc.Function.Name,
				Args:     tc.Function.Arguments,
				Result:   resultStr,
				Err:      callErr,
			})
			messages = append(messages, ccMessage{
				Role:       "tool",
				Content:    resultStr,
				ToolCallID: tc.ID,
			})
		}
	}

	// Tool-budget exhausted: proceed with whatever text is available, if any.
	if result.OutputJSON == "" {
		return result, apperr.AgentOutput("tool-call budget exhausted with no structured output", nil)
	}
	return result, nil
}

var _ Client = (*chatCompletionsClient)(nil)
