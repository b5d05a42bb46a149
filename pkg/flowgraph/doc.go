/*
Package flowgraph runs small typed workflows as directed graphs.

A Graph[S] is built from named nodes and edges, validated by Compile, and
executed by CompiledGraph[S].Run. State of type S flows by value from node
to node; each node returns the state it wants the next node to see.

# Basic Usage

	graph := flowgraph.NewGraph[State]().
	    AddNode("process", process).
	    AddEdge("process", flowgraph.END).
	    SetEntry("process")

	compiled, err := graph.Compile()
	if err != nil {
	    return err
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, State{Input: "hello"})

# Conditional Entry

SetConditionalEntry replaces a fixed entry point with a router evaluated
from the virtual START node. The router returns the first node and may
update the state first, which is how a routing decision gets recorded:

	graph.SetConditionalEntry(func(ctx flowgraph.Context, s State) (string, State) {
	    s.Kind = classify(s.Input)
	    if s.Kind == KindLookup {
	        return "fetch", s
	    }
	    return "answer", s
	}, "fetch", "answer")

Compile checks every listed target exists; Run rejects anything else the
router returns with a RouterError.

Conditional edges between nodes (AddConditionalEdge) work the same way
without the state update.

# Checkpoints

With WithCheckpointing and WithRunID, a run that reaches END writes its
final state to a checkpoint.Store under the run ID, replacing whatever was
there. Failed and cancelled runs write nothing. Checkpoints are records
of the last completed run; Run never reads them back.

	result, err := compiled.Run(ctx, state,
	    flowgraph.WithCheckpointing(store),
	    flowgraph.WithRunID(sessionID))

# Errors

Run returns typed errors that work with errors.As:

  - *NodeError: a node returned an error
  - *PanicError: a node or router panicked (stack captured)
  - *RouterError: a router returned "" or an unknown node
  - *CancellationError: the context ended before or during the last node
  - *MaxIterationsError: the iteration guard tripped
  - *CheckpointError: a checkpoint write failed and WithCheckpointFailureFatal is set

On error the returned state is the state at the point of failure.

# Observability

WithObservabilityLogger, WithMetrics and WithTracing turn on slog
lifecycle logs, OpenTelemetry metrics and spans for a run. All are off by
default.

# Thread Safety

Build a Graph from one goroutine. A CompiledGraph is immutable and safe
for concurrent Run calls, provided the node functions are.
*/
package flowgraph
