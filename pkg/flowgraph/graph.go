package flowgraph

import (
	"fmt"
	"strings"
)

// Graph collects nodes and edges until Compile. It is not safe for
// concurrent use; build it in one goroutine and share the CompiledGraph.
//
//	compiled, err := flowgraph.NewGraph[State]().
//	    AddNode("retriever", retrieve).
//	    AddNode("responder", respond).
//	    AddEdge("retriever", "responder").
//	    AddEdge("responder", flowgraph.END).
//	    SetConditionalEntry(route, "retriever", "responder").
//	    Compile()
type Graph[S any] struct {
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string
	entryRouter      EntryRouterFunc[S]
	entryTargets     []string
}

func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
	}
}

// mustValidID panics on ids that could be confused with START or END or
// that would be ambiguous in logs.
func mustValidID(id string) {
	switch strings.ToLower(id) {
	case "":
		panic("flowgraph: node ID cannot be empty")
	case "end", END:
		panic("flowgraph: node ID cannot be reserved word 'END'")
	case "start", START:
		panic("flowgraph: node ID cannot be reserved word 'START'")
	}
	if strings.ContainsAny(id, " \t\n\r") {
		panic("flowgraph: node ID cannot contain whitespace")
	}
}

// AddNode registers fn under id. It panics on an invalid or duplicate id
// and on a nil fn.
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	mustValidID(id)
	if fn == nil {
		panic("flowgraph: node function cannot be nil")
	}
	if _, dup := g.nodes[id]; dup {
		panic(fmt.Sprintf("flowgraph: duplicate node ID: %s", id))
	}
	g.nodes[id] = fn
	return g
}

// AddEdge adds a fixed edge; to may be END. Targets are checked by Compile.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge lets router pick the successor of from at run time.
// It wins over any fixed edges from the same node.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("flowgraph: router function cannot be nil")
	}
	g.conditionalEdges[from] = router
	return g
}

func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.entryPoint = id
	return g
}

// SetConditionalEntry routes from START. The router runs once per Run
// before any node and its returned state replaces the initial one. Routes
// outside targets fail the run with a RouterError. Takes precedence over
// SetEntry.
func (g *Graph[S]) SetConditionalEntry(router EntryRouterFunc[S], targets ...string) *Graph[S] {
	if router == nil {
		panic("flowgraph: entry router cannot be nil")
	}
	if len(targets) == 0 {
		panic("flowgraph: conditional entry needs at least one target")
	}
	g.entryRouter = router
	g.entryTargets = append([]string(nil), targets...)
	return g
}
