package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/querybot/internal/session"
)

func TestFormatContext(t *testing.T) {
	docs := []session.Document{{Content: "red shoe"}, {Content: "blue shoe"}}
	assert.Equal(t, "Document 1: red shoe\n\nDocument 2: blue shoe", FormatContext(docs))
	assert.Equal(t, "", FormatContext(nil))
}

func TestSampleDocuments(t *testing.T) {
	docs := SampleDocuments()
	require.Len(t, docs, 10)
	assert.Equal(t, "product_0", docs[0].Metadata["source"])
	assert.Equal(t, "product_9", docs[9].Metadata["source"])
	assert.Contains(t, docs[0].Content, "Nike Air Max 270")
}

func TestCatalogRetriever_Search(t *testing.T) {
	r := NewCatalogRetriever(SampleDocuments()...)

	docs, err := r.Search(context.Background(), "Do you have Nike shoes in size 42?", 3)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Contains(t, docs[0].Content, "Nike Air Max 270")
	for i := 1; i < len(docs); i++ {
		assert.GreaterOrEqual(t, docs[i-1].Score, docs[i].Score)
	}
}

func TestCatalogRetriever_PluralMatchesSingular(t *testing.T) {
	r := NewCatalogRetriever(SampleDocuments()...)

	docs, err := r.Search(context.Background(), "walking shoe", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Skechers Go Walk 6")
}

func TestCatalogRetriever_NoMatch(t *testing.T) {
	r := NewCatalogRetriever(SampleDocuments()...)

	docs, err := r.Search(context.Background(), "umbrella", 5)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	docs, err = r.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestCatalogRetriever_KZeroReturnsAllMatches(t *testing.T) {
	r := NewCatalogRetriever(SampleDocuments()...)

	docs, err := r.Search(context.Background(), "running", 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestCatalogRetriever_Cancelled(t *testing.T) {
	r := NewCatalogRetriever(SampleDocuments()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Search(ctx, "nike", 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCatalogRetriever_Add(t *testing.T) {
	r := NewCatalogRetriever()
	assert.Equal(t, 0, r.Len())

	r.Add(session.Document{Content: "Trail runner, size 45"})
	assert.Equal(t, 1, r.Len())

	docs, err := r.Search(context.Background(), "trail", 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.InDelta(t, 1.0, docs[0].Score, 0.0001)
}

func TestRetrieverFunc(t *testing.T) {
	var r Retriever = RetrieverFunc(func(_ context.Context, q string, k int) ([]session.Document, error) {
		return []session.Document{{Content: q}}, nil
	})
	docs, err := r.Search(context.Background(), "x", 1)
	require.NoError(t, err)
	assert.Equal(t, "x", docs[0].Content)
}
