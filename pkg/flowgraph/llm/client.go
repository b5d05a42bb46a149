// Package llm is the language-model boundary: a small completion and
// embedding interface, an OpenAI-backed implementation, and a scripted
// mock for tests.
package llm

import (
	"context"
	"errors"
)

// Client produces text completions.
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Embedder turns text into vectors for similarity search.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ErrEmptyResponse is returned when the provider answers with no choices.
var ErrEmptyResponse = errors.New("llm: empty response")
