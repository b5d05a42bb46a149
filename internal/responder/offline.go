package responder

import (
	"context"
	"strings"
)

// OfflineGenerator answers without a language model by quoting the
// retrieved context. It backs runs with no API key configured.
type OfflineGenerator struct{}

// Generate implements Generator.
func (OfflineGenerator) Generate(ctx context.Context, _, _, retrieved string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(retrieved) == "" {
		return "Hello! I can help you find products in our catalog. Ask me about brands, sizes, colors or prices.", nil
	}
	return "Here is what I found in our catalog:\n\n" + retrieved, nil
}
