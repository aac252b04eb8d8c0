package llmclient

import "context"

// Tool is a callable the LLM may invoke during generation. Handler receives
// the raw JSON arguments the model produced and returns a JSON-encodable
// result (or an error, which is folded back into the conversation as a
// tool-failure message rather than aborting the call).
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     func(ctx context.Context, argsJSON []byte) (any, error)
}

// Message is one turn in the conversation sent to the model.
type Message struct {
	Role    string // "system" | "user" | "assistant" | "tool"
	Content string
}

// ToolCall records one invocation the model made during a single request,
// for the ToolTrace returned alongside AgentAnswer.
type ToolCall struct {
	ToolName string
	Args     string
	Result   string
	Err      error
}

// Request bundles everything a single chat/responses call needs.
type Request struct {
	SystemPrompt       string
	Messages           []Message
	Tools              []Tool
	StructuredSchema   map[string]any // JSON schema the model must conform to
	MaxToolCalls       int
	Temperature        float64
	MaxTokens          int
}

// RawHandle records the model identity and API path of the last provider
// response, so the assembler can set the model headers without the client
// package needing to know about headers. Usage is carried separately in
// Result.Usage.
type RawHandle struct {
	ModelName string
	APIType   string // "chat_completions" | "responses"
}
