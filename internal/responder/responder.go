// Package responder produces the final answer text for a session.
package responder

import (
	"context"
	"fmt"
	"strings"
)

// SystemPrompt frames every answer.
const SystemPrompt = `You are a helpful product assistant for an e-commerce platform. Your role is to:

1. Answer questions about products based ONLY on the provided context
2. If the context doesn't contain relevant information, politely say you don't have that information
3. Be conversational and helpful, but stay grounded in facts
4. For greetings or casual conversation, respond naturally but briefly
5. Always prioritize accuracy over helpfulness - don't make up product details

Guidelines:
- Use the product information from the context to answer queries
- Be specific about sizes, colors, prices when available
- If asked about availability, refer to what's mentioned in the context
- Don't hallucinate or invent product details not in the context
`

// Generator writes an answer for query given the retrieved context, which
// may be empty.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, query, retrieved string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, systemPrompt, query, retrieved string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, systemPrompt, query, retrieved string) (string, error) {
	return f(ctx, systemPrompt, query, retrieved)
}

// BuildUserPrompt renders the user turn. A blank context produces a
// prompt that tells the model nothing was retrieved.
func BuildUserPrompt(query, retrieved string) string {
	if strings.TrimSpace(retrieved) == "" {
		return fmt.Sprintf("User Query: %s\n\nNote: No specific product context was retrieved. Please respond appropriately to the user's query.", query)
	}
	return fmt.Sprintf("Context (Retrieved product information):\n%s\n\nUser Query: %s\n\nPlease provide a helpful response based on the context above.", retrieved, query)
}
