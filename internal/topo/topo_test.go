package topo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/graph"
)

// fakeView lets tests build arbitrary edge shapes, including cycles the
// append-only registry cannot express.
type fakeView struct {
	ops     []graph.Op
	parents [][]graph.NodeID
}

func (f *fakeView) Count() int                              { return len(f.ops) }
func (f *fakeView) OpOf(id graph.NodeID) graph.Op           { return f.ops[id.Index()] }
func (f *fakeView) Parents(id graph.NodeID) []graph.NodeID  { return f.parents[id.Index()] }
func (f *fakeView) ForEachChild(id graph.NodeID, fn func(graph.NodeID)) {
	for i, ps := range f.parents {
		for _, p := range ps {
			if p == id {
				fn(graph.NodeID(i))
			}
		}
	}
}

func buildDiamond(t *testing.T) *graph.Registry {
	t.Helper()
	r := graph.New()
	a := r.AddConst([]float64{1}, "a")
	b, err := r.AddUnop(graph.OpNeg, a, "b")
	require.NoError(t, err)
	c, err := r.AddUnop(graph.OpNeg, a, "c")
	require.NoError(t, err)
	_, err = r.AddBinop(graph.OpAdd, b, c, "d")
	require.NoError(t, err)
	return r
}

func TestSort_RespectsParentEdges(t *testing.T) {
	r := buildDiamond(t)
	order, err := Sort(r)
	require.NoError(t, err)
	require.Len(t, order, 4)

	pos := make(map[graph.NodeID]int)
	for i, id := range order {
		pos[id] = i
	}
	for i := 0; i < r.Count(); i++ {
		id := graph.NodeID(i)
		for _, p := range r.Parents(id) {
			assert.Less(t, pos[p], pos[id], "parent %s must precede %s", p, id)
		}
	}
}

func TestSort_Deterministic(t *testing.T) {
	r := buildDiamond(t)
	first, err := Sort(r)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Sort(r)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSort_TieBreakAscendingID(t *testing.T) {
	// Three independent constants: all ready at once, emitted ascending.
	r := graph.New()
	r.AddConst([]float64{1}, "x")
	r.AddConst([]float64{2}, "y")
	r.AddConst([]float64{3}, "z")
	order, err := Sort(r)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{0, 1, 2}, order)
}

func TestSort_CycleDetected(t *testing.T) {
	// 0 -> 1 -> 2 -> 1 (cycle between 1 and 2), node 3 independent.
	f := &fakeView{
		ops: []graph.Op{graph.OpConst, graph.OpAdd, graph.OpAdd, graph.OpConst},
		parents: [][]graph.NodeID{
			nil,
			{0, 2},
			{1, 1},
			nil,
		},
	}
	_, err := Sort(f)
	require.Error(t, err)
	var cyc *CycleError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []graph.NodeID{1, 2}, cyc.Nodes)
}

func TestSort_ConstraintEdgesIgnored(t *testing.T) {
	r := graph.New()
	v := r.AddSolverVar("x")
	c := r.AddConst([]float64{10}, "target")
	_, err := r.MustEqual(v, c, "x_eq_target")
	require.NoError(t, err)

	order, sortErr := Sort(r)
	require.NoError(t, sortErr)
	assert.Len(t, order, 3)
}

func TestDownstreamFrom_TransitiveConsumers(t *testing.T) {
	r := graph.New()
	a := r.AddConst([]float64{1}, "a")
	b := r.AddConst([]float64{2}, "b")
	ab, err := r.AddBinop(graph.OpAdd, a, b, "ab")
	require.NoError(t, err)
	neg, err := r.AddUnop(graph.OpNeg, ab, "neg")
	require.NoError(t, err)
	// Sibling branch not downstream of a.
	only, err := r.AddUnop(graph.OpNeg, b, "only_b")
	require.NoError(t, err)

	down := DownstreamFrom(r, []graph.NodeID{a})
	assert.Equal(t, []graph.NodeID{a, ab, neg}, down)
	assert.NotContains(t, down, only)
}

func TestDownstreamFrom_DeduplicatesSeeds(t *testing.T) {
	r := graph.New()
	a := r.AddConst([]float64{1}, "a")
	down := DownstreamFrom(r, []graph.NodeID{a, a})
	assert.Equal(t, []graph.NodeID{a}, down)
}

func TestDownstreamFrom_TopologicalOrder(t *testing.T) {
	r := buildDiamond(t)
	down := DownstreamFrom(r, []graph.NodeID{0})
	assert.Equal(t, []graph.NodeID{0, 1, 2, 3}, down)
}
