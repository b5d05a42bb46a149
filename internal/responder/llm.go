package responder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/querybot/pkg/flowgraph/llm"
	"github.com/randalmurphal/querybot/pkg/flowgraph/retry"
)

// LLMGenerator answers with an llm.Client, retrying transient failures.
type LLMGenerator struct {
	client llm.Client
	retry  retry.Config
	logger *slog.Logger
}

// Option configures an LLMGenerator.
type Option func(*LLMGenerator)

// WithRetry sets the retry policy. retry.None disables retries.
func WithRetry(cfg retry.Config) Option {
	return func(g *LLMGenerator) {
		g.retry = cfg
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(g *LLMGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewLLMGenerator wraps client.
func NewLLMGenerator(client llm.Client, opts ...Option) *LLMGenerator {
	g := &LLMGenerator{
		client: client,
		retry:  retry.Default,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate implements Generator. A blank completion is an error.
func (g *LLMGenerator) Generate(ctx context.Context, systemPrompt, query, retrieved string) (string, error) {
	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{llm.UserMessage(BuildUserPrompt(query, retrieved))},
	}

	res := retry.Do(ctx, g.retry, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return g.client.Complete(ctx, req)
	})
	if res.Err != nil {
		return "", fmt.Errorf("generate answer: %w", res.Err)
	}

	answer := strings.TrimSpace(res.Value.Content)
	if answer == "" {
		return "", fmt.Errorf("generate answer: %w", llm.ErrEmptyResponse)
	}
	g.logger.Debug("answer generated",
		slog.String("model", res.Value.Model),
		slog.Int("attempts", res.Attempts),
		slog.Int("total_tokens", res.Value.Usage.TotalTokens),
	)
	return answer, nil
}
