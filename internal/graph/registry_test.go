package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/unit"
)

func TestAddNodes_ParentOrderingInvariant(t *testing.T) {
	r := New()
	a := r.AddConst([]float64{1, 2, 3}, "a")
	b := r.AddConst([]float64{4, 5, 6}, "b")
	c, err := r.AddBinop(OpAdd, a, b, "c")
	require.NoError(t, err)

	assert.Equal(t, 3, r.Count())
	for _, p := range r.Parents(c) {
		assert.Less(t, uint32(p), uint32(c))
	}
	assert.Equal(t, []NodeID{a, b}, r.Parents(c))
	assert.Empty(t, r.Parents(a))
}

func TestAddBinop_RejectsUnknownParent(t *testing.T) {
	r := New()
	a := r.AddConst([]float64{1}, "a")
	_, err := r.AddBinop(OpAdd, a, NodeID(42), "bad")
	require.Error(t, err)
	var unknown *UnknownNodeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, NodeID(42), unknown.ID)
}

func TestAddBinop_RejectsNonBinaryOp(t *testing.T) {
	r := New()
	a := r.AddConst([]float64{1}, "a")
	_, err := r.AddBinop(OpNeg, a, a, "bad")
	assert.Error(t, err)
}

func TestAddPrev_RequiresPositiveLag(t *testing.T) {
	r := New()
	a := r.AddConst([]float64{1, 2}, "a")
	_, err := r.AddPrev(a, 0, "bad")
	assert.Error(t, err)

	p, err := r.AddPrev(a, 2, "lagged")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), r.LagOf(p))
	assert.Equal(t, OpPrev, r.OpOf(p))
}

func TestUniqueNames_SuffixCollisions(t *testing.T) {
	r := New()
	a := r.AddConst([]float64{1}, "revenue")
	b := r.AddConst([]float64{2}, "revenue")
	c := r.AddConst([]float64{3}, "revenue")

	assert.Equal(t, "revenue", r.NameOf(a))
	assert.Equal(t, "revenue_1", r.NameOf(b))
	assert.Equal(t, "revenue_2", r.NameOf(c))

	id, ok := r.Lookup("revenue_1")
	require.True(t, ok)
	assert.Equal(t, b, id)
}

func TestUniqueNames_DefaultsToPosition(t *testing.T) {
	r := New()
	a := r.AddConst([]float64{1}, "")
	assert.Equal(t, "node_0", r.NameOf(a))
}

func TestRevision_StructuralChangesOnly(t *testing.T) {
	r := New()
	rev0 := r.Revision()
	a := r.AddConst([]float64{1}, "a")
	require.Greater(t, r.Revision(), rev0)

	// Declarations are structural: they change what validation sees.
	rev1 := r.Revision()
	require.NoError(t, r.DeclareKind(a, KindFlow))
	require.Greater(t, r.Revision(), rev1)

	rev2 := r.Revision()
	require.NoError(t, r.DeclareUnit(a, unit.MustParse("USD")))
	require.Greater(t, r.Revision(), rev2)

	// Constant updates are data-only.
	rev3 := r.Revision()
	gen3 := r.DataGeneration()
	require.NoError(t, r.UpdateConstant(a, []float64{9}))
	assert.Equal(t, rev3, r.Revision())
	assert.Greater(t, r.DataGeneration(), gen3)
}

func TestUpdateConstant_RejectsNonConst(t *testing.T) {
	r := New()
	a := r.AddConst([]float64{1}, "a")
	n, err := r.AddUnop(OpNeg, a, "neg")
	require.NoError(t, err)
	assert.Error(t, r.UpdateConstant(n, []float64{2}))
}

func TestMustEqual_CollectsConstraintPairs(t *testing.T) {
	r := New()
	v := r.AddSolverVar("fee")
	target := r.AddConst([]float64{20}, "target")
	cn, err := r.MustEqual(v, target, "fee_balances")
	require.NoError(t, err)

	pairs := r.Constraints()
	require.Len(t, pairs, 1)
	assert.Equal(t, ConstraintPair{Node: cn, LHS: v, RHS: target}, pairs[0])
	assert.Equal(t, []NodeID{v}, r.SolverVars())
	assert.Equal(t, OpConstraint, r.OpOf(cn))
}

func TestInitialGuess(t *testing.T) {
	r := New()
	v := r.AddSolverVar("x")
	assert.Equal(t, 0.0, r.InitialGuess(v))
	require.NoError(t, r.SetInitialGuess(v, 3.5))
	assert.Equal(t, 3.5, r.InitialGuess(v))

	c := r.AddConst([]float64{1}, "c")
	assert.Error(t, r.SetInitialGuess(c, 1.0))
}

func TestForEachChild_WalksConsumers(t *testing.T) {
	r := New()
	a := r.AddConst([]float64{1}, "a")
	b, err := r.AddUnop(OpNeg, a, "b")
	require.NoError(t, err)
	c, err := r.AddBinop(OpMul, a, b, "c")
	require.NoError(t, err)

	var children []NodeID
	r.ForEachChild(a, func(child NodeID) { children = append(children, child) })
	assert.ElementsMatch(t, []NodeID{b, c}, children)
}
