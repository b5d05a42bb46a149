package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/querybot/pkg/flowgraph/llm"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		reply    string
		decision Decision
		ok       bool
	}{
		{"PRODUCT", ProductQuery, true},
		{"  chat\n", GeneralConversation, true},
		{"Chat.", GeneralConversation, true},
		{"The answer is PRODUCT", ProductQuery, true},
		{"PRODUCT or CHAT", ProductQuery, true},
		{"unsure", FailOpenDecision, false},
		{"", FailOpenDecision, false},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			d, ok := ParseReply(tt.reply)
			assert.Equal(t, tt.decision, d)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("Any running shoes?")
	assert.Equal(t, "Query: Any running shoes?", p.User)
	assert.Contains(t, p.System, "precise intent classifier")
	assert.Contains(t, p.System, "When in doubt, choose PRODUCT")
}

func TestLLMModel_Classify(t *testing.T) {
	client := llm.NewMockClient(" CHAT ")
	m := NewLLMModel(client, 0)

	reply, err := m.Classify(context.Background(), BuildPrompt("hey"))
	require.NoError(t, err)
	assert.Equal(t, " CHAT ", reply)

	req := client.LastCall()
	require.NotNil(t, req)
	assert.Equal(t, systemPrompt, req.SystemPrompt)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "Query: hey", req.Messages[0].Content)
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)
}

func TestLLMModel_Timeout(t *testing.T) {
	client := llm.NewMockClient("").WithCompleteFunc(func(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	m := NewLLMModel(client, 10*time.Millisecond)

	_, err := m.Classify(context.Background(), BuildPrompt("hey"))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClassifier_WithLLMModel(t *testing.T) {
	client := llm.NewMockClient("PRODUCT")
	c := New(NewLLMModel(client, time.Second))

	assert.Equal(t, ProductQuery, c.Classify(context.Background(), "tell me about trail gear"))
	assert.Equal(t, ProductQuery, c.Classify(context.Background(), "Tell me about trail gear"))
	assert.Equal(t, 1, client.CallCount())
}
