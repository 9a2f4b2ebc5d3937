package ai

import (
	"context"
	"fmt"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// ChatRequest is a provider-neutral completion request.
type ChatRequest struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Messages    []Message
	// JSONOutput asks the provider to constrain the reply to a JSON object.
	JSONOutput bool
}

// Completion is the text of the first choice plus token accounting when
// the provider reports it.
type Completion struct {
	Text  string
	Usage *TokenUsage
}

// Completer is the boundary to a remote language model.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (*Completion, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req ChatRequest) (*Completion, error)

func (f CompleterFunc) Complete(ctx context.Context, req ChatRequest) (*Completion, error) {
	return f(ctx, req)
}

// ModelChecker is implemented by providers that can report whether their
// configured model is reachable.
type ModelChecker interface {
	CheckModel(ctx context.Context) (*ModelInfo, error)
}

// CompletionError is the failure of a completion call. StatusCode is the
// HTTP status of the remote reply, or 0 when no reply was received.
type CompletionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode == 0 {
		return e.Body
	}
	return fmt.Sprintf("Error %d: %s", e.StatusCode, e.Body)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func (u *TokenUsage) add(other *TokenUsage) *TokenUsage {
	if other == nil {
		return u
	}
	if u == nil {
		u = &TokenUsage{}
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	return u
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
