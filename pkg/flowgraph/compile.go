package flowgraph

import (
	"errors"
	"fmt"
	"log/slog"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. An entry point or conditional entry must be set
//  2. The entry point (or every conditional entry target) must reference an existing node or END
//  3. All edge sources must reference existing nodes
//  4. All edge targets must reference existing nodes or END
//  5. There must be a path from the entry to END
//
// Unreachable nodes (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	var errs []error

	// 1 & 2. Entry
	switch {
	case g.entryRouter != nil:
		for _, target := range g.entryTargets {
			if target == END {
				continue
			}
			if _, exists := g.nodes[target]; !exists {
				errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, target))
			}
		}
	case g.entryPoint == "":
		errs = append(errs, ErrNoEntryPoint)
	default:
		if _, exists := g.nodes[g.entryPoint]; !exists {
			errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
		}
	}

	// 3 & 4. Edge references
	for from, targets := range g.edges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}

		for _, to := range targets {
			if to != END {
				if _, exists := g.nodes[to]; !exists {
					errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
				}
			}
		}
	}

	for from := range g.conditionalEdges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
		}
	}

	// 5. Path to END
	if len(errs) == 0 && !g.hasPathToEnd() {
		errs = append(errs, ErrNoPathToEnd)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g.warnUnreachableNodes()

	return freeze(g), nil
}

// entryNodes returns the nodes execution can start from.
func (g *Graph[S]) entryNodes() []string {
	if g.entryRouter != nil {
		return g.entryTargets
	}
	if g.entryPoint == "" {
		return nil
	}
	return []string{g.entryPoint}
}

// hasPathToEnd checks if there's a path from the entry to END.
// Nodes with conditional edges are assumed to potentially reach END.
// A conditional entry only needs one of its targets to reach END.
func (g *Graph[S]) hasPathToEnd() bool {
	canReachEnd := map[string]bool{END: true}

	changed := true
	for changed {
		changed = false

		for from, targets := range g.edges {
			if canReachEnd[from] {
				continue
			}
			for _, to := range targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}

		for from := range g.conditionalEdges {
			if !canReachEnd[from] {
				canReachEnd[from] = true
				changed = true
			}
		}
	}

	for _, id := range g.entryNodes() {
		if canReachEnd[id] {
			return true
		}
	}
	return false
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph[S]) warnUnreachableNodes() {
	reachable := g.findReachableNodes()

	for nodeID := range g.nodes {
		if !reachable[nodeID] {
			slog.Warn("node is unreachable from entry", "node_id", nodeID)
		}
	}
}

// findReachableNodes returns the set of nodes reachable from the entry.
func (g *Graph[S]) findReachableNodes() map[string]bool {
	reachable := make(map[string]bool)

	queue := make([]string, 0, len(g.nodes))
	for _, id := range g.entryNodes() {
		if id != END && !reachable[id] {
			reachable[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, target := range g.edges[current] {
			if target != END && !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}

		// A conditional edge may return any node, so everything is reachable.
		if _, hasConditional := g.conditionalEdges[current]; hasConditional {
			for nodeID := range g.nodes {
				if !reachable[nodeID] {
					reachable[nodeID] = true
					queue = append(queue, nodeID)
				}
			}
		}
	}

	return reachable
}
