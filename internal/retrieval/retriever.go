// Package retrieval finds product documents relevant to a query.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/randalmurphal/querybot/internal/session"
)

// Retriever returns up to k documents for query, best first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]session.Document, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string, k int) ([]session.Document, error)

// Search implements Retriever.
func (f RetrieverFunc) Search(ctx context.Context, query string, k int) ([]session.Document, error) {
	return f(ctx, query, k)
}

// FormatContext renders documents as the responder's context block:
// "Document 1: ...", "Document 2: ...", separated by a blank line.
func FormatContext(docs []session.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("Document %d: %s", i+1, d.Content)
	}
	return strings.Join(parts, "\n\n")
}
