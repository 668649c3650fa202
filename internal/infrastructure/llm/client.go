// Package llm defines the contract for the text-generation backend used by
// the assessment and question-answering services.
package llm

import "context"

// Request is a single blocking completion request. The service sends exactly
// one system instruction and one user turn per call; multi-turn state is
// assembled by callers into the prompt itself.
type Request struct {
	// System is the system instruction. Empty means no system message.
	System string

	// Prompt is the user-turn content.
	Prompt string

	// MaxTokens and Temperature override the client defaults when non-zero.
	MaxTokens   int
	Temperature float64
}

// Response carries the generated text and token usage when the backend
// reports it.
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Client is the generation backend contract. Implementations must map
// connectivity failures to pkg/errors ErrCodeLLMUnavailable so callers can
// degrade to partial results.
//
// There is deliberately no retry or streaming support: a failed generation is
// surfaced immediately and the caller decides whether the flow can continue
// without it.
type Client interface {
	// Generate performs one blocking completion round-trip.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Ping reports whether the backend is reachable and serving.
	Ping(ctx context.Context) error
}
