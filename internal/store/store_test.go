package store_test

import (
	"testing"

	"github.com/dominikbraun/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/regflow/internal/store"
)

func TestUpdateVertexProperties(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore[string, string]()
	require.NoError(t, st.AddVertex("a", "a", graph.VertexProperties{Attributes: map[string]string{"interface": "func:sum"}}))

	_, before, err := st.Vertex("a")
	require.NoError(t, err)

	err = st.UpdateVertexProperties("a", func(p *graph.VertexProperties) {
		p.Attributes["status"] = "succeeded"
		p.Weight = 42
	})
	require.NoError(t, err)

	_, after, err := st.Vertex("a")
	require.NoError(t, err)
	assert.Equal(t, 42, after.Weight)
	assert.Equal(t, map[string]string{"interface": "func:sum", "status": "succeeded"}, after.Attributes)

	assert.NotContains(t, before.Attributes, "status")
	assert.Zero(t, before.Weight)

	err = st.UpdateVertexProperties("missing")
	assert.ErrorIs(t, err, store.ErrUnknownVertex)
}

func TestGraphWithMemoryStore(t *testing.T) {
	t.Parallel()

	g := graph.NewWithStore(graph.StringHash, store.NewMemoryStore[string, string](), graph.Directed(), graph.PreventCycles())

	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddVertex(v))
	}

	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	assert.ErrorIs(t, g.AddEdge("c", "a"), graph.ErrEdgeCreatesCycle)
	assert.ErrorIs(t, g.AddVertex("a"), graph.ErrVertexAlreadyExists)

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	require.NoError(t, g.UpdateEdge("a", "b", graph.EdgeAttribute("label", "1s")))
	edge, err := g.Edge("a", "b")
	require.NoError(t, err)
	assert.Equal(t, "1s", edge.Properties.Attributes["label"])

	assert.ErrorIs(t, g.RemoveVertex("b"), graph.ErrVertexHasEdges)
}

func TestMemoryStoreListing(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore[string, int]()

	for i, v := range []string{"c", "a", "b"} {
		require.NoError(t, st.AddVertex(v, i, graph.VertexProperties{}))
	}

	require.NoError(t, st.AddEdge("c", "a", graph.Edge[string]{Source: "c", Target: "a"}))
	require.NoError(t, st.AddEdge("a", "b", graph.Edge[string]{Source: "a", Target: "b"}))
	require.NoError(t, st.AddEdge("a", "b", graph.Edge[string]{Source: "a", Target: "b"}))

	vertices, err := st.ListVertices()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, vertices)

	edges, err := st.ListEdges()
	require.NoError(t, err)
	assert.Len(t, edges, 2)
	assert.Equal(t, "c", edges[0].Source)

	require.NoError(t, st.RemoveEdge("c", "a"))
	require.NoError(t, st.RemoveEdge("c", "a"))
	_, err = st.Edge("c", "a")
	assert.ErrorIs(t, err, graph.ErrEdgeNotFound)

	require.NoError(t, st.RemoveVertex("c"))
	vertices, err = st.ListVertices()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, vertices)

	count, err := st.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.ErrorIs(t, st.AddEdge("a", "missing", graph.Edge[string]{}), graph.ErrVertexNotFound)
	assert.ErrorIs(t, st.UpdateEdge("b", "a", graph.Edge[string]{}), graph.ErrEdgeNotFound)
}

func TestMemoryStoreCreatesCycle(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore[string, string]()
	for _, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, st.AddVertex(v, v, graph.VertexProperties{}))
	}

	require.NoError(t, st.AddEdge("a", "b", graph.Edge[string]{Source: "a", Target: "b"}))
	require.NoError(t, st.AddEdge("b", "c", graph.Edge[string]{Source: "b", Target: "c"}))

	cycles, ok := st.(interface {
		CreatesCycle(source, target string) (bool, error)
	})
	require.True(t, ok)

	for _, tc := range []struct {
		source, target string
		cycle          bool
	}{
		{"c", "a", true},
		{"a", "a", true},
		{"a", "c", false},
		{"d", "a", false},
		{"c", "d", false},
	} {
		got, err := cycles.CreatesCycle(tc.source, tc.target)
		require.NoError(t, err)
		assert.Equal(t, tc.cycle, got, "%s -> %s", tc.source, tc.target)
	}

	_, err := cycles.CreatesCycle("a", "missing")
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)
}
