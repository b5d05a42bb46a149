package flowgraph

// START names the virtual entry in logs and errors. It is never a node.
const START = "__start__"

// END is the edge target that finishes a run.
const END = "__end__"

// NodeFunc is one step. State is passed and returned by value.
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc picks the successor of a node: a node ID or END. An empty or
// unknown ID fails the run.
type RouterFunc[S any] func(ctx Context, state S) string

// EntryRouterFunc picks the first node and may update the state, so the
// decision behind the route is recorded before any node runs.
//
//	func route(ctx flowgraph.Context, s State) (string, State) {
//	    s.Intent = classify(ctx, s.Query)
//	    if s.Intent == Product {
//	        return "retriever", s
//	    }
//	    return "responder", s
//	}
type EntryRouterFunc[S any] func(ctx Context, state S) (string, S)
