package flowgraph

import (
	"maps"
	"slices"
)

// CompiledGraph is the executable form of a Graph. It shares nothing with
// its builder and is safe for concurrent Run calls.
type CompiledGraph[S any] struct {
	nodes        map[string]NodeFunc[S]
	edges        map[string][]string
	routers      map[string]RouterFunc[S]
	entryPoint   string
	entryRouter  EntryRouterFunc[S]
	entryTargets map[string]bool
	predecessors map[string][]string
}

// freeze copies the builder's tables into a CompiledGraph.
func freeze[S any](g *Graph[S]) *CompiledGraph[S] {
	cg := &CompiledGraph[S]{
		nodes:        maps.Clone(g.nodes),
		edges:        make(map[string][]string, len(g.edges)),
		routers:      maps.Clone(g.conditionalEdges),
		entryPoint:   g.entryPoint,
		entryRouter:  g.entryRouter,
		predecessors: make(map[string][]string),
	}

	for from, targets := range g.edges {
		cg.edges[from] = slices.Clone(targets)
		for _, to := range targets {
			if to != END {
				cg.predecessors[to] = append(cg.predecessors[to], from)
			}
		}
	}
	for _, preds := range cg.predecessors {
		slices.Sort(preds)
	}

	if g.entryRouter != nil {
		cg.entryTargets = make(map[string]bool, len(g.entryTargets))
		for _, t := range g.entryTargets {
			cg.entryTargets[t] = true
		}
	}
	return cg
}

// EntryPoint is the first node, or START when entry is conditional.
func (cg *CompiledGraph[S]) EntryPoint() string {
	if cg.entryRouter != nil {
		return START
	}
	return cg.entryPoint
}

// EntryTargets lists, sorted, where a conditional entry may go. Nil for a
// fixed entry.
func (cg *CompiledGraph[S]) EntryTargets() []string {
	if cg.entryRouter == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(cg.entryTargets))
}

// NodeIDs lists every node, in no particular order.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	return slices.Collect(maps.Keys(cg.nodes))
}

func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, ok := cg.nodes[id]
	return ok
}

// Successors are the fixed-edge targets of id.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return cg.edges[id]
}

// Predecessors are the nodes with a fixed edge into id, sorted.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional reports whether id leaves through a router.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	_, ok := cg.routers[id]
	return ok
}

func (cg *CompiledGraph[S]) getNode(id string) (NodeFunc[S], bool) {
	fn, ok := cg.nodes[id]
	return fn, ok
}

func (cg *CompiledGraph[S]) getRouter(id string) (RouterFunc[S], bool) {
	r, ok := cg.routers[id]
	return r, ok
}

func (cg *CompiledGraph[S]) getEdges(id string) []string {
	return cg.edges[id]
}
