// Package model holds dockhand's provider-agnostic core types.
//
// The Provider interface lives here (not in the provider package) so that
// provider implementations can import model without creating an import
// cycle, the same way the orchestrator consumes it.
package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts an LLM endpoint (OpenAI-compatible, Anthropic, Ollama).
//
// Implementations stream responses through the callback and must honor
// context cancellation mid-stream: an aborted Thinking step stops token
// consumption without affecting tool actions already dispatched.
type Provider interface {
	// Chat sends messages and streams the reply back via callback.
	Chat(ctx context.Context, turns []Turn, callback StreamCallback) error

	// ChatWithTools sends messages along with the tool catalog. Tool call
	// requests surface through the callback once fully accumulated.
	ChatWithTools(ctx context.Context, turns []Turn, tools []mcptypes.Tool, callback StreamCallback) error

	// GetModel returns the active model identifier.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks that the endpoint is reachable with the configured
	// credentials.
	Ping(ctx context.Context) error
}

// StreamCallback is invoked for each streamed chunk. Tool calls arrive with
// an empty chunk once the provider has accumulated their full arguments.
type StreamCallback func(chunk string, toolCalls []ToolCall) error

// Embedder turns text into a fixed-dimension vector. Failure is reported via
// the error return, never encoded in the vector itself.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name identifies the backend for logging.
	Name() string
}
