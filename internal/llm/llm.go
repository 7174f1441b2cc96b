package llm

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the model provider is not configured or disabled.
// Callers degrade to keyword-only behavior instead of failing the turn.
var ErrUnavailable = errors.New("llm unavailable")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// CompletionRequest carries one model call. Temperature and MaxTokens are
// fixed per call site to bound cost and latency.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	FinishReason string
}

type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}
