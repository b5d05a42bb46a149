package intent

import (
	"context"
	"strings"
	"time"

	"github.com/randalmurphal/querybot/pkg/flowgraph/llm"
)

// Reply tokens the classification prompt asks the model for.
const (
	productToken = "PRODUCT"
	chatToken    = "CHAT"
)

const systemPrompt = `You are a precise intent classifier for an e-commerce chatbot.

Classify user queries into exactly one category:

PRODUCT: Questions about products, shopping, items, prices, availability, specifications, purchases, or any commerce-related intent.

CHAT: Greetings, casual conversation, questions about the service itself, gratitude, or social interactions.

Key principles:
- "Do you have X?" = PRODUCT (even if X is general)
- "What can you help with?" = CHAT (asking about service capabilities)
- "Hello, do you have shoes?" = PRODUCT (intent is product despite greeting)
- When in doubt, choose PRODUCT (better to show products than miss a potential customer)

Examples:
"Do you have Nike shoes?" -> PRODUCT
"What sizes do you carry?" -> PRODUCT
"Hello!" -> CHAT
"How does this work?" -> CHAT
"Thanks for helping!" -> CHAT
"Any running shoes available?" -> PRODUCT

Respond with exactly one word: PRODUCT or CHAT`

// Prompt is a classification request for the fallback model.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt returns the classification prompt for query.
func BuildPrompt(query string) Prompt {
	return Prompt{System: systemPrompt, User: "Query: " + query}
}

// Model answers a classification prompt with free text.
type Model interface {
	Classify(ctx context.Context, prompt Prompt) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, prompt Prompt) (string, error)

// Classify implements Model.
func (f ModelFunc) Classify(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// FailOpenDecision is returned whenever the model cannot give a usable
// answer. Showing products to a chatty user costs less than withholding
// them from a shopper.
const FailOpenDecision = ProductQuery

func failOpen() Decision {
	return FailOpenDecision
}

// ParseReply maps a model reply to a decision. ok is false when the reply
// named neither token and the fail-open decision was used.
func ParseReply(reply string) (d Decision, ok bool) {
	r := strings.ToUpper(strings.TrimSpace(reply))
	switch {
	case strings.Contains(r, productToken):
		return ProductQuery, true
	case strings.Contains(r, chatToken):
		return GeneralConversation, true
	default:
		return failOpen(), false
	}
}

// LLMModel classifies with an llm.Client.
type LLMModel struct {
	client  llm.Client
	timeout time.Duration
}

// NewLLMModel wraps client. A positive timeout bounds each call.
func NewLLMModel(client llm.Client, timeout time.Duration) *LLMModel {
	return &LLMModel{client: client, timeout: timeout}
}

// Classify implements Model.
func (m *LLMModel) Classify(ctx context.Context, prompt Prompt) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	resp, err := m.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: prompt.System,
		Messages:     []llm.Message{llm.UserMessage(prompt.User)},
		MaxTokens:    5,
		Temperature:  llm.Temperature(0),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
