package responder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/querybot/pkg/flowgraph/llm"
	"github.com/randalmurphal/querybot/pkg/flowgraph/retry"
)

var fastRetry = retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffFactor: 1}

func TestBuildUserPrompt(t *testing.T) {
	withCtx := BuildUserPrompt("Nike?", "Document 1: Nike Air Max")
	assert.Equal(t, "Context (Retrieved product information):\nDocument 1: Nike Air Max\n\nUser Query: Nike?\n\nPlease provide a helpful response based on the context above.", withCtx)

	for _, blank := range []string{"", "  \n "} {
		p := BuildUserPrompt("hi", blank)
		assert.Equal(t, "User Query: hi\n\nNote: No specific product context was retrieved. Please respond appropriately to the user's query.", p)
	}
}

func TestLLMGenerator_Generate(t *testing.T) {
	client := llm.NewMockClient("  The Nike Air Max 270 costs $120.  ")
	g := NewLLMGenerator(client)

	answer, err := g.Generate(context.Background(), SystemPrompt, "Nike price?", "Document 1: Nike Air Max 270, $120")
	require.NoError(t, err)
	assert.Equal(t, "The Nike Air Max 270 costs $120.", answer)

	req := client.LastCall()
	require.NotNil(t, req)
	assert.Equal(t, SystemPrompt, req.SystemPrompt)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "Document 1: Nike Air Max 270")
}

func TestLLMGenerator_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	client := llm.NewMockClient("").WithCompleteFunc(func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if calls.Add(1) < 3 {
			return nil, &retry.HTTPError{StatusCode: 503, Message: "busy"}
		}
		return &llm.CompletionResponse{Content: "ok"}, nil
	})
	g := NewLLMGenerator(client, WithRetry(fastRetry))

	answer, err := g.Generate(context.Background(), SystemPrompt, "q", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLLMGenerator_PermanentFailure(t *testing.T) {
	client := llm.NewMockClient("").WithError(&retry.HTTPError{StatusCode: 401, Message: "bad key"})
	g := NewLLMGenerator(client, WithRetry(fastRetry))

	_, err := g.Generate(context.Background(), SystemPrompt, "q", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate answer")
	assert.Equal(t, 1, client.CallCount())
}

func TestLLMGenerator_BlankAnswer(t *testing.T) {
	g := NewLLMGenerator(llm.NewMockClient("   "), WithRetry(retry.None))

	_, err := g.Generate(context.Background(), SystemPrompt, "q", "")
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestLLMGenerator_Cancelled(t *testing.T) {
	g := NewLLMGenerator(llm.NewMockClient("ok"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, SystemPrompt, "q", "")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOfflineGenerator(t *testing.T) {
	var g Generator = OfflineGenerator{}

	answer, err := g.Generate(context.Background(), SystemPrompt, "hi", "")
	require.NoError(t, err)
	assert.Contains(t, answer, "help you find products")

	answer, err = g.Generate(context.Background(), SystemPrompt, "nike", "Document 1: Nike Air Max")
	require.NoError(t, err)
	assert.Contains(t, answer, "Document 1: Nike Air Max")
}

func TestGeneratorFunc(t *testing.T) {
	var g Generator = GeneratorFunc(func(_ context.Context, _, q, _ string) (string, error) {
		return "echo " + q, nil
	})
	answer, err := g.Generate(context.Background(), "", "x", "")
	require.NoError(t, err)
	assert.Equal(t, "echo x", answer)
}
