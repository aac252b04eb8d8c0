// Package apperr defines the error-kind taxonomy the note query pipeline
// uses to translate raw upstream failures into the stable outward kinds
// the query service's state machine reasons about.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, outward-facing error classification.
type Kind string

const (
	KindConfig        Kind = "config"
	KindAuth          Kind = "auth"
	KindEmbedding     Kind = "embedding"
	KindVectorStore   Kind = "vector_store"
	KindLLM           Kind = "llm"
	KindAgentOutput   Kind = "agent_output"
	KindMCP           Kind = "mcp"
	KindCancelled     Kind = "cancelled"
)

// LLMKind further classifies an LLMError by the upstream failure mode.
type LLMKind string

const (
	LLMRateLimit   LLMKind = "rate_limit"
	LLMAuth        LLMKind = "auth"
	LLMTimeout     LLMKind = "timeout"
	LLMConnection  LLMKind = "connection"
	LLMOther       LLMKind = "other"
)

// Error is the single error type every component boundary translates its
// failures into. Message must never contain API tokens, prompt text, or
// stack traces.
type Error struct {
	Kind    Kind
	LLMKind LLMKind // only meaningful when Kind == KindLLM
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindLLM && e.LLMKind != "" {
		return fmt.Sprintf("%s(%s): %s", e.Kind, e.LLMKind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Config(msg string, err error) *Error      { return newErr(KindConfig, msg, err) }
func Auth(msg string) *Error                   { return newErr(KindAuth, msg, nil) }
func Embedding(msg string, err error) *Error   { return newErr(KindEmbedding, msg, err) }
func VectorStore(msg string, err error) *Error { return newErr(KindVectorStore, msg, err) }
func AgentOutput(msg string, err error) *Error { return newErr(KindAgentOutput, msg, err) }
func MCP(msg string, err error) *Error         { return newErr(KindMCP, msg, err) }
func Cancelled(msg string, err error) *Error   { return newErr(KindCancelled, msg, err) }

// LLM builds an LLMError with the given sub-kind.
func LLM(kind LLMKind, msg string, err error) *Error {
	return &Error{Kind: KindLLM, LLMKind: kind, Message: msg, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
