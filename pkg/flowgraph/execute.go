package flowgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/querybot/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/querybot/pkg/flowgraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure (useful for debugging).
//
// Execution flow:
//  1. Resolve the first node (entry point, or the conditional entry router)
//  2. Check for cancellation
//  3. Execute the current node
//  4. Determine the next node (via simple or conditional edge)
//  5. Repeat until END is reached or an error occurs
//  6. If checkpointing is enabled, persist the final state under the run ID
//
// Example:
//
//	ctx := flowgraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, initialState)
//	if err != nil {
//	    // result contains state at point of failure
//	}
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.checkpointStore != nil && cfg.runID == "" {
		return state, ErrRunIDRequired
	}

	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID)

	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, "flowgraph", runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var path []string
	result, path, runErr = cg.runWithObservability(execCtx, ctx, state, &cfg)

	if runErr == nil && cfg.checkpointStore != nil {
		runErr = cg.saveCheckpoint(ctx, &cfg, path, result)
	}

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())

	cfg.metrics.RecordGraphRun(ctx, runErr == nil, duration)

	if runErr != nil {
		observability.LogRunError(cfg.logger, runID, runErr, durationMs, lastNodeOf(runErr, path))
	} else {
		observability.LogRunComplete(cfg.logger, runID, durationMs, len(path))
	}

	return result, runErr
}

// resolveEntry returns the first node to execute and the state to start with.
func (cg *CompiledGraph[S]) resolveEntry(ctx Context, state S) (next string, result S, err error) {
	if cg.entryRouter == nil {
		return cg.entryPoint, state, nil
	}

	routerCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		routerCtx = ec.withNodeID(START)
	}

	defer func() {
		if r := recover(); r != nil {
			next = ""
			result = state
			err = &PanicError{
				NodeID: START,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	next, result = cg.entryRouter(routerCtx, state)

	if next == "" {
		return "", result, &RouterError{
			FromNode: START,
			Returned: next,
			Err:      ErrInvalidRouterResult,
		}
	}
	if !cg.entryTargets[next] {
		return "", result, &RouterError{
			FromNode: START,
			Returned: next,
			Err:      ErrRouterTargetNotFound,
		}
	}

	return next, result, nil
}

// runWithObservability executes the graph with full observability.
// tracingCtx carries span context; fgCtx is the flowgraph Context.
// Returns the final state, the executed node path, and any error.
func (cg *CompiledGraph[S]) runWithObservability(tracingCtx context.Context, fgCtx Context, state S, cfg *runConfig) (S, []string, error) {
	current, state, err := cg.resolveEntry(fgCtx, state)
	if err != nil {
		return state, nil, err
	}

	var path []string
	iterations := 0

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, path, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		select {
		case <-fgCtx.Done():
			return state, path, &CancellationError{
				NodeID:       current,
				State:        state,
				Cause:        fgCtx.Err(),
				WasExecuting: false,
			}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()

		var nodeErr error
		state, nodeErr = cg.executeNode(fgCtx, current, state)

		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)

		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return state, path, nodeErr
		}
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))
		path = append(path, current)

		next, err := cg.nextNode(fgCtx, state, current)
		if err != nil {
			return state, path, err
		}

		current = next
	}

	return state, path, nil
}

// saveCheckpoint persists the final state under the run ID.
// A run whose context was cancelled while its last node ran is reported
// as cancelled and not persisted.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx Context, cfg *runConfig, path []string, state S) error {
	lastNode := ""
	if len(path) > 0 {
		lastNode = path[len(path)-1]
	}

	if err := ctx.Err(); err != nil {
		return &CancellationError{
			NodeID:       lastNode,
			State:        state,
			Cause:        err,
			WasExecuting: true,
		}
	}

	stateBytes, err := json.Marshal(state)
	if err != nil {
		return cg.checkpointFailure(cfg, lastNode, "serialize", err)
	}

	data, err := checkpoint.New(cfg.runID, lastNode, stateBytes).
		WithPath(path).
		Marshal()
	if err != nil {
		return cg.checkpointFailure(cfg, lastNode, "marshal", err)
	}

	if err := cfg.checkpointStore.Save(ctx, cfg.runID, data); err != nil {
		return cg.checkpointFailure(cfg, lastNode, "save", err)
	}

	observability.LogCheckpoint(cfg.logger, lastNode, len(data))
	cfg.metrics.RecordCheckpoint(ctx, lastNode, int64(len(data)))

	return nil
}

// checkpointFailure either returns a CheckpointError or logs and swallows it.
func (cg *CompiledGraph[S]) checkpointFailure(cfg *runConfig, nodeID, op string, err error) error {
	if cfg.checkpointFailureFatal {
		return &CheckpointError{
			NodeID: nodeID,
			Op:     op,
			Err:    err,
		}
	}
	observability.LogCheckpointError(cfg.logger, nodeID, op, err)
	return nil
}

// executeNode executes a single node with panic recovery.
// Returns the new state and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeNode(ctx Context, nodeID string, state S) (result S, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(nodeID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return result, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode determines the next node to execute.
// Checks conditional edges first, then simple edges.
func (cg *CompiledGraph[S]) nextNode(ctx Context, state S, current string) (string, error) {
	if router, exists := cg.getRouter(current); exists {
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withNodeID(current)
		}

		next := router(routerCtx, state)

		if next == "" {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrInvalidRouterResult,
			}
		}

		if next != END {
			if _, exists := cg.getNode(next); !exists {
				return "", &RouterError{
					FromNode: current,
					Returned: next,
					Err:      ErrRouterTargetNotFound,
				}
			}
		}

		return next, nil
	}

	edges := cg.getEdges(current)
	if len(edges) == 0 {
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}

	// Multiple simple edges from one node are not fanned out; the first wins.
	return edges[0], nil
}
