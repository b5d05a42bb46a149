package flowgraph

import (
	"context"
	"sync"
)

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int
}

// State is a richer state for routing and checkpoint tests.
type State struct {
	Input    string   `json:"input"`
	Route    string   `json:"route"`
	Progress []string `json:"progress"`
	Output   string   `json:"output"`
	Done     bool     `json:"done"`
}

func increment(_ Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

func passthrough[S any](_ Context, s S) (S, error) {
	return s, nil
}

// tracker records node executions; safe for concurrent runs.
type tracker struct {
	mu    sync.Mutex
	calls []string
}

func (tr *tracker) record(name string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.calls = append(tr.calls, name)
}

func (tr *tracker) snapshot() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.calls...)
}

func makeTrackingNode(name string, tr *tracker) NodeFunc[State] {
	return func(_ Context, s State) (State, error) {
		tr.record(name)
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

func makeFailingNode(err error) NodeFunc[State] {
	return func(_ Context, s State) (State, error) {
		return s, err
	}
}

func makePanicNode(value any) NodeFunc[State] {
	return func(_ Context, _ State) (State, error) {
		panic(value)
	}
}

// routeByInput sends "lookup" inputs to fetch and everything else to answer,
// recording the decision in Route.
func routeByInput(_ Context, s State) (string, State) {
	if s.Input == "lookup" {
		s.Route = "fetch"
		return "fetch", s
	}
	s.Route = "answer"
	return "answer", s
}

// newEntryGraph builds START -> {fetch, answer}; fetch -> answer -> END.
func newEntryGraph(tr *tracker) *CompiledGraph[State] {
	compiled, err := NewGraph[State]().
		AddNode("fetch", makeTrackingNode("fetch", tr)).
		AddNode("answer", makeTrackingNode("answer", tr)).
		AddEdge("fetch", "answer").
		AddEdge("answer", END).
		SetConditionalEntry(routeByInput, "fetch", "answer").
		Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}

func testCtx() Context {
	return NewContext(context.Background())
}
