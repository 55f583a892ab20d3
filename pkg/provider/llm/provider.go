// Package llm defines the Provider interface for Large Language Model
// backends used by the LLM-assisted correction handler.
//
// An LLM provider wraps a remote or local model API (e.g., OpenAI, Anthropic
// Claude, or a local Ollama instance) and exposes a uniform completion
// interface so the correction pipeline never couples to a specific SDK.
// Only the non-streaming completion surface is modelled — gap correction is
// a batch workload with small prompts and structured JSON responses.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message is typically
	// from the "user" role and drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. Providers without a dedicated system slot prepend it
	// as a "system"-role message.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// Usage holds token accounting information returned by the LLM backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is returned by [Provider.Complete].
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage is the backend's token accounting, when reported.
	Usage Usage
}

// Provider is a non-streaming LLM completion backend.
type Provider interface {
	// Complete sends req to the model and returns its reply. Context
	// cancellation and network errors are returned as non-nil errors.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
