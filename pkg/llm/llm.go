package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Usage reports token consumption for a single completion call
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Completion is the unified result of any provider call
type Completion struct {
	Text  string
	Usage Usage
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	UserID      string // Attribution metadata for usage logging
	Operation   string // e.g. "intent_classification", "entity_extraction"
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithUser(userID string) Option {
	return func(o *Options) {
		o.UserID = userID
	}
}

func WithOperation(operation string) Option {
	return func(o *Options) {
		o.Operation = operation
	}
}

// LLMProvider defines the contract for any LLM backend.
// The core treats the model as a black box: prompt in, text out,
// token usage out. Callers must handle non-JSON output defensively.
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (*Completion, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (*Completion, error)
}
