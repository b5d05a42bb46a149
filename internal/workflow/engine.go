// Package workflow runs one query through classification, optional
// retrieval and answer generation, and checkpoints the result per session.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/querybot/internal/intent"
	"github.com/randalmurphal/querybot/internal/responder"
	"github.com/randalmurphal/querybot/internal/retrieval"
	"github.com/randalmurphal/querybot/internal/session"
	"github.com/randalmurphal/querybot/pkg/flowgraph"
	"github.com/randalmurphal/querybot/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/querybot/pkg/flowgraph/observability"
)

// Node IDs.
const (
	NodeRetriever = "retriever"
	NodeResponder = "responder"
)

// Defaults applied by New.
const (
	DefaultTopK             = 3
	DefaultRetrieverTimeout = 10 * time.Second
	DefaultGeneratorTimeout = 30 * time.Second
)

// Classifier is the intent classifier the engine routes with.
type Classifier interface {
	Classify(ctx context.Context, query string) intent.Decision
	Stats() intent.Stats
	Reset()
}

var _ Classifier = (*intent.Classifier)(nil)

// Sentinel errors.
var (
	ErrNoCheckpointStore   = errors.New("checkpointing is not configured")
	ErrMissingCollaborator = errors.New("workflow: classifier, retriever and generator are required")
)

// Result is the outcome of Process.
type Result struct {
	State session.State `json:"state"`
	Stats intent.Stats  `json:"routing_stats"`
}

// Engine is safe for concurrent use; each Process call owns its state.
type Engine struct {
	classifier Classifier
	retriever  retrieval.Retriever
	generator  responder.Generator
	graph      *flowgraph.CompiledGraph[session.State]

	store            checkpoint.Store
	topK             int
	retrieverTimeout time.Duration
	generatorTimeout time.Duration
	logger           *slog.Logger
	metrics          observability.MetricsRecorder
	tracing          bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCheckpointStore saves each finished session state to store.
func WithCheckpointStore(store checkpoint.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithTopK sets how many documents the retriever asks for.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithRetrieverTimeout bounds each retrieval call.
func WithRetrieverTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.retrieverTimeout = d
		}
	}
}

// WithGeneratorTimeout bounds each answer generation call.
func WithGeneratorTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.generatorTimeout = d
		}
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records run and node metrics to m.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracing emits a span per run and per node through the global
// tracer provider.
func WithTracing(enabled bool) Option {
	return func(e *Engine) {
		e.tracing = enabled
	}
}

// New wires the graph START -> {retriever, responder}, retriever ->
// responder, responder -> END.
func New(classifier Classifier, retriever retrieval.Retriever, generator responder.Generator, opts ...Option) (*Engine, error) {
	if classifier == nil || retriever == nil || generator == nil {
		return nil, ErrMissingCollaborator
	}

	e := &Engine{
		classifier:       classifier,
		retriever:        retriever,
		generator:        generator,
		topK:             DefaultTopK,
		retrieverTimeout: DefaultRetrieverTimeout,
		generatorTimeout: DefaultGeneratorTimeout,
		logger:           slog.Default(),
		metrics:          observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}

	graph, err := flowgraph.NewGraph[session.State]().
		AddNode(NodeRetriever, e.retrieve).
		AddNode(NodeResponder, e.respond).
		AddEdge(NodeRetriever, NodeResponder).
		AddEdge(NodeResponder, flowgraph.END).
		SetConditionalEntry(e.route, NodeRetriever, NodeResponder).
		Compile()
	if err != nil {
		return nil, fmt.Errorf("compile workflow: %w", err)
	}
	e.graph = graph
	return e, nil
}

// Process answers query for sessionID. It never fails: an engine error
// yields session.ErrorState, which is not checkpointed. A blank sessionID
// disables checkpointing for the call.
func (e *Engine) Process(ctx context.Context, sessionID, query string) Result {
	state := session.New(sessionID, query)

	fctx := flowgraph.NewContext(ctx,
		flowgraph.WithLogger(e.logger),
		flowgraph.WithContextRunID(sessionID),
	)
	opts := []flowgraph.RunOption{
		flowgraph.WithMaxIterations(2),
		flowgraph.WithObservabilityLogger(e.logger),
		flowgraph.WithMetricsRecorder(e.metrics),
		flowgraph.WithTracing(e.tracing),
	}
	if sessionID != "" {
		opts = append(opts, flowgraph.WithRunID(sessionID))
		if e.store != nil {
			opts = append(opts, flowgraph.WithCheckpointing(e.store))
		}
	}

	final, err := e.graph.Run(fctx, state, opts...)
	if err != nil {
		e.logger.Error("query processing failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		final = session.ErrorState(sessionID, query, err)
	}

	return Result{State: final, Stats: e.classifier.Stats()}
}

// Stats returns the classifier statistics.
func (e *Engine) Stats() intent.Stats {
	return e.classifier.Stats()
}

// Reset clears the classifier cache and counters and returns the
// resulting stats.
func (e *Engine) Reset() intent.Stats {
	e.classifier.Reset()
	return e.classifier.Stats()
}

// route is the conditional entry: blank queries skip classification.
func (e *Engine) route(ctx flowgraph.Context, s session.State) (string, session.State) {
	if s.IsBlank() {
		return NodeResponder, s.Apply(session.Update{Intent: session.Ptr(session.IntentEmptyQuery)})
	}

	d := e.classifier.Classify(ctx, s.Query)
	s = s.Apply(session.Update{Intent: session.Ptr(d)})

	switch d {
	case intent.ProductQuery:
		return NodeRetriever, s
	case intent.GeneralConversation:
		return NodeResponder, s
	default:
		ctx.Logger().Error("classifier returned unknown decision", slog.String("decision", d.String()))
		return "", s
	}
}

// retrieve never fails the run; errors degrade to an empty context.
func (e *Engine) retrieve(ctx flowgraph.Context, s session.State) (session.State, error) {
	sctx, cancel := context.WithTimeout(ctx, e.retrieverTimeout)
	defer cancel()

	docs, err := e.retriever.Search(sctx, s.Query, e.topK)
	if err != nil {
		ctx.Logger().Warn("retrieval failed", slog.String("error", err.Error()))
		return s.Apply(session.Update{
			Documents:      session.Ptr([]session.Document{}),
			Context:        session.Ptr(""),
			NumRetrieved:   session.Ptr(0),
			RetrievalError: session.Ptr(err.Error()),
		}), nil
	}

	return s.Apply(session.Update{
		Documents:    session.Ptr(docs),
		Context:      session.Ptr(retrieval.FormatContext(docs)),
		NumRetrieved: session.Ptr(len(docs)),
	}), nil
}

// respond never fails the run; errors become the fixed apology.
func (e *Engine) respond(ctx flowgraph.Context, s session.State) (session.State, error) {
	gctx, cancel := context.WithTimeout(ctx, e.generatorTimeout)
	defer cancel()

	answer, err := e.generator.Generate(gctx, responder.SystemPrompt, s.Query, s.Context)
	now := time.Now().UTC()
	if err != nil {
		ctx.Logger().Warn("answer generation failed", slog.String("error", err.Error()))
		return s.Apply(session.Update{
			Answer:               session.Ptr(session.GenerationFailedAnswer),
			Confidence:           session.Ptr(session.ConfidenceFailed),
			ProcessingSuccessful: session.Ptr(false),
			ProcessingError:      session.Ptr(err.Error()),
			CompletedAt:          &now,
		}), nil
	}

	return s.Apply(session.Update{
		Answer:               session.Ptr(answer),
		Confidence:           session.Ptr(session.ConfidenceFor(s)),
		ProcessingSuccessful: session.Ptr(true),
		CompletedAt:          &now,
	}), nil
}
