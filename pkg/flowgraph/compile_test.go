package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_LinearGraph(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	assert.Equal(t, "a", compiled.EntryPoint())
	assert.Nil(t, compiled.EntryTargets())
	assert.ElementsMatch(t, []string{"a", "b"}, compiled.NodeIDs())
	assert.Equal(t, []string{"b"}, compiled.Successors("a"))
	assert.Equal(t, []string{"a"}, compiled.Predecessors("b"))
	assert.Nil(t, compiled.Successors(END))
}

func TestCompile_ConditionalEntry(t *testing.T) {
	compiled := newEntryGraph(&tracker{})

	assert.Equal(t, START, compiled.EntryPoint())
	assert.Equal(t, []string{"answer", "fetch"}, compiled.EntryTargets())
	assert.True(t, compiled.HasNode("fetch"))
	assert.False(t, compiled.HasNode(START))
	assert.ElementsMatch(t, []string{"fetch"}, compiled.Predecessors("answer"))
}

func TestCompile_ConditionalEntryTakesPrecedence(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("fetch", passthrough[State]).
		AddNode("answer", passthrough[State]).
		AddEdge("fetch", "answer").
		AddEdge("answer", END).
		SetEntry("fetch").
		SetConditionalEntry(routeByInput, "fetch", "answer").
		Compile()

	require.NoError(t, err)
	assert.Equal(t, START, compiled.EntryPoint())
}

func TestCompile_ConditionalEntryToEND(t *testing.T) {
	_, err := NewGraph[State]().
		AddNode("answer", passthrough[State]).
		AddEdge("answer", END).
		SetConditionalEntry(func(_ Context, s State) (string, State) { return END, s }, "answer", END).
		Compile()

	assert.NoError(t, err)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Graph[State]
		want  error
	}{
		{
			name: "no entry",
			build: func() *Graph[State] {
				return NewGraph[State]().
					AddNode("a", passthrough[State]).
					AddEdge("a", END)
			},
			want: ErrNoEntryPoint,
		},
		{
			name: "entry not found",
			build: func() *Graph[State] {
				return NewGraph[State]().
					AddNode("a", passthrough[State]).
					AddEdge("a", END).
					SetEntry("missing")
			},
			want: ErrEntryNotFound,
		},
		{
			name: "conditional entry target not found",
			build: func() *Graph[State] {
				return NewGraph[State]().
					AddNode("answer", passthrough[State]).
					AddEdge("answer", END).
					SetConditionalEntry(routeByInput, "fetch", "answer")
			},
			want: ErrEntryNotFound,
		},
		{
			name: "edge target not found",
			build: func() *Graph[State] {
				return NewGraph[State]().
					AddNode("a", passthrough[State]).
					AddEdge("a", "ghost").
					SetEntry("a")
			},
			want: ErrNodeNotFound,
		},
		{
			name: "edge source not found",
			build: func() *Graph[State] {
				return NewGraph[State]().
					AddNode("a", passthrough[State]).
					AddEdge("a", END).
					AddEdge("ghost", END).
					SetEntry("a")
			},
			want: ErrNodeNotFound,
		},
		{
			name: "conditional edge source not found",
			build: func() *Graph[State] {
				return NewGraph[State]().
					AddNode("a", passthrough[State]).
					AddEdge("a", END).
					AddConditionalEdge("ghost", func(Context, State) string { return END }).
					SetEntry("a")
			},
			want: ErrNodeNotFound,
		},
		{
			name: "no path to END",
			build: func() *Graph[State] {
				return NewGraph[State]().
					AddNode("a", passthrough[State]).
					AddNode("b", passthrough[State]).
					AddEdge("a", "b").
					AddEdge("b", "a").
					SetEntry("a")
			},
			want: ErrNoPathToEnd,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompile_MultipleErrorsJoined(t *testing.T) {
	_, err := NewGraph[State]().
		AddNode("a", passthrough[State]).
		AddEdge("a", "ghost1").
		AddEdge("ghost2", END).
		SetEntry("missing").
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Contains(t, err.Error(), "ghost1")
	assert.Contains(t, err.Error(), "ghost2")
}

func TestCompile_UnreachableNodeIsNotAnError(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("a", passthrough[State]).
		AddNode("orphan", passthrough[State]).
		AddEdge("a", END).
		AddEdge("orphan", END).
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	assert.True(t, compiled.HasNode("orphan"))
}

func TestCompile_ConditionalLoop(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("inc", increment).
		AddConditionalEdge("inc", func(_ Context, c Counter) string {
			if c.Value >= 3 {
				return END
			}
			return "inc"
		}).
		SetEntry("inc").
		Compile()

	require.NoError(t, err)
	assert.True(t, compiled.IsConditional("inc"))
}
