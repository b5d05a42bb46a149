package flowgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randalmurphal/querybot/pkg/flowgraph/observability"
)

// Context is what nodes and routers receive: a context.Context that also
// carries the run's logger and identity. The executor derives one per
// node, so NodeID and the logger's node_id always name the running step
// (START while the entry router decides; empty outside a run).
type Context interface {
	context.Context

	// Logger is never nil.
	Logger() *slog.Logger
	RunID() string
	NodeID() string
}

type executionContext struct {
	context.Context
	logger *slog.Logger
	runID  string
	nodeID string
}

func (c *executionContext) Logger() *slog.Logger { return c.logger }
func (c *executionContext) RunID() string        { return c.runID }
func (c *executionContext) NodeID() string       { return c.nodeID }

// ContextOption configures NewContext.
type ContextOption func(*executionContext)

// WithLogger replaces the default slog logger. Nil is ignored.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContextRunID names the run in logs and spans. Checkpoints are keyed by
// the RunOption WithRunID, which takes precedence when both are set.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		if id != "" {
			c.runID = id
		}
	}
}

// NewContext wraps ctx. Without WithContextRunID the run gets a random UUID.
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{Context: ctx, logger: slog.Default()}
	for _, opt := range opts {
		opt(ec)
	}
	if ec.runID == "" {
		ec.runID = uuid.NewString()
	}
	return ec
}

func (c *executionContext) withNodeID(nodeID string) *executionContext {
	derived := *c
	derived.nodeID = nodeID
	derived.logger = observability.EnrichLogger(c.logger, c.runID, nodeID)
	return &derived
}
