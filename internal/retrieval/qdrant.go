package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/randalmurphal/querybot/internal/session"
	"github.com/randalmurphal/querybot/pkg/flowgraph/llm"
	"github.com/randalmurphal/querybot/pkg/flowgraph/retry"
)

// ContentKey is the payload field holding a point's document text.
const ContentKey = "content"

// ErrEmptyEmbedding is returned when the embedder yields no vector.
var ErrEmptyEmbedding = errors.New("embedder returned no vector")

// pointsAPI is the subset of *qdrant.Client used here.
type pointsAPI interface {
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Close() error
}

// QdrantRetriever embeds the query and runs a nearest-neighbour search
// against a Qdrant collection.
type QdrantRetriever struct {
	client     pointsAPI
	embedder   llm.Embedder
	collection string
	retry      retry.Config
	logger     *slog.Logger
}

// QdrantOption configures a QdrantRetriever.
type QdrantOption func(*QdrantRetriever)

// WithRetry sets the retry policy for embedding and search calls.
func WithRetry(cfg retry.Config) QdrantOption {
	return func(r *QdrantRetriever) {
		r.retry = cfg
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) QdrantOption {
	return func(r *QdrantRetriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// DialQdrant connects to the Qdrant gRPC endpoint at host:port.
func DialQdrant(host string, port int, apiKey, collection string, embedder llm.Embedder, opts ...QdrantOption) (*QdrantRetriever, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant %s:%d: %w", host, port, err)
	}
	return newQdrantRetriever(client, embedder, collection, opts...), nil
}

func newQdrantRetriever(client pointsAPI, embedder llm.Embedder, collection string, opts ...QdrantOption) *QdrantRetriever {
	r := &QdrantRetriever{
		client:     client,
		embedder:   embedder,
		collection: collection,
		retry:      retry.Default,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search implements Retriever.
func (r *QdrantRetriever) Search(ctx context.Context, query string, k int) ([]session.Document, error) {
	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	limit := uint64(max(k, 1))
	res := retry.Do(ctx, r.retry, func(ctx context.Context) ([]*qdrant.ScoredPoint, error) {
		hits, err := r.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: r.collection,
			Query:          qdrant.NewQuery(vec...),
			Limit:          &limit,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		return hits, categorizeGRPC(err, "query qdrant")
	})
	if res.Err != nil {
		return nil, fmt.Errorf("search %s: %w", r.collection, res.Err)
	}

	docs := make([]session.Document, 0, len(res.Value))
	for _, hit := range res.Value {
		if doc, ok := pointToDocument(hit); ok {
			docs = append(docs, doc)
		}
	}
	r.logger.Debug("qdrant search completed",
		slog.String("collection", r.collection),
		slog.Int("hits", len(docs)),
		slog.Int("attempts", res.Attempts),
	)
	return docs, nil
}

func (r *QdrantRetriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	res := retry.Do(ctx, r.retry, func(ctx context.Context) ([][]float32, error) {
		return r.embedder.Embed(ctx, []string{query})
	})
	if res.Err != nil {
		return nil, fmt.Errorf("embed query: %w", res.Err)
	}
	if len(res.Value) == 0 || len(res.Value[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return res.Value[0], nil
}

// Seed creates the collection when missing and upserts docs with ids
// 0..len(docs)-1. Reseeding the same documents is idempotent.
func (r *QdrantRetriever) Seed(ctx context.Context, docs []session.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	res := retry.Do(ctx, r.retry, func(ctx context.Context) ([][]float32, error) {
		return r.embedder.Embed(ctx, texts)
	})
	if res.Err != nil {
		return fmt.Errorf("embed documents: %w", res.Err)
	}
	vectors := res.Value
	if len(vectors) != len(docs) {
		return fmt.Errorf("embed documents: got %d vectors for %d documents", len(vectors), len(docs))
	}

	if err := r.ensureCollection(ctx, uint64(len(vectors[0]))); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		payload := map[string]any{ContentKey: d.Content}
		for k, v := range d.Metadata {
			payload[k] = v
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	if _, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upsert into %s: %w", r.collection, err)
	}
	r.logger.Info("seeded qdrant collection",
		slog.String("collection", r.collection),
		slog.Int("documents", len(docs)),
	)
	return nil
}

func (r *QdrantRetriever) ensureCollection(ctx context.Context, dim uint64) error {
	existing, err := r.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if slices.Contains(existing, r.collection) {
		return nil
	}
	err = r.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", r.collection, err)
	}
	return nil
}

// Close releases the gRPC connection.
func (r *QdrantRetriever) Close() error {
	return r.client.Close()
}

// pointToDocument reads the content field and copies scalar payload fields
// into metadata. Points without content are skipped.
func pointToDocument(p *qdrant.ScoredPoint) (session.Document, bool) {
	payload := p.GetPayload()
	content := payload[ContentKey].GetStringValue()
	if content == "" {
		return session.Document{}, false
	}

	meta := make(map[string]any, len(payload)-1)
	for k, v := range payload {
		if k == ContentKey {
			continue
		}
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			meta[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			meta[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			meta[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			meta[k] = kind.BoolValue
		}
	}

	return session.Document{
		Content:  content,
		Metadata: meta,
		Score:    float64(p.GetScore()),
	}, true
}

// categorizeGRPC marks unavailable and overloaded server responses as
// transient. Other errors keep the default categorization.
func categorizeGRPC(err error, op string) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return retry.Transient(err, op)
	case codes.DeadlineExceeded:
		// The caller's own deadline is final.
		if errors.Is(err, context.DeadlineExceeded) {
			return retry.Permanent(err, op)
		}
		return retry.Transient(err, op)
	default:
		return retry.Permanent(err, op)
	}
}
