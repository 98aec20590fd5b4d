package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/ledger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func demoSession() Session {
	return Session{
		Label:     "financing",
		ModelLen:  1,
		Backend:   "gauss-newton",
		Converged: true,
		Values: []NodeValue{
			{ID: 0, Name: "cost", Scalar: true, Data: []float64{1000}},
			{ID: 3, Name: "total_funds", Scalar: true, Data: []float64{1020.4081632653061}},
		},
		Trace: []ledger.SolverIteration{
			{Iter: 0, ObjVal: 200, InfPr: 20, InfDu: 0},
			{Iter: 1, ObjVal: 0, InfPr: 0, InfDu: 20.408},
		},
	}
}

func TestStore_RecordAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.RecordSession(ctx, demoSession())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "financing", got.Label)
	assert.Equal(t, "gauss-newton", got.Backend)
	assert.True(t, got.Converged)
	require.Len(t, got.Values, 2)
	assert.Equal(t, "cost", got.Values[0].Name)
	assert.Equal(t, []float64{1000}, got.Values[0].Data)
	assert.Equal(t, []float64{1020.4081632653061}, got.Values[1].Data)
	require.Len(t, got.Trace, 2)
	assert.Equal(t, 20.408, got.Trace[1].InfDu)
}

func TestStore_SeriesValuesKeepStepOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := demoSession()
	sess.Values = []NodeValue{
		{ID: 1, Name: "cash_flows", Scalar: false, Data: []float64{3, 1, 2}},
	}
	id, err := s.RecordSession(ctx, sess)
	require.NoError(t, err)

	got, err := s.LoadSession(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Values, 1)
	assert.False(t, got.Values[0].Scalar)
	assert.Equal(t, []float64{3, 1, 2}, got.Values[0].Data)
}

func TestStore_ListSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.RecordSession(ctx, demoSession())
	require.NoError(t, err)
	failed := demoSession()
	failed.Label = "diverged"
	failed.Converged = false
	second, err := s.RecordSession(ctx, failed)
	require.NoError(t, err)

	sums, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	byID := map[string]Summary{}
	for _, sum := range sums {
		byID[sum.ID] = sum
	}
	assert.True(t, byID[first].Converged)
	assert.False(t, byID[second].Converged)
	assert.Equal(t, "diverged", byID[second].Label)
	assert.Equal(t, 2, byID[first].Iterations)
}

func TestStore_LoadMissingSession(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadSession(context.Background(), "no-such-id")
	assert.Error(t, err)
}

func TestStore_DuplicateIDRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := demoSession()
	sess.ID = "fixed-id"
	_, err := s.RecordSession(ctx, sess)
	require.NoError(t, err)
	_, err = s.RecordSession(ctx, sess)
	assert.Error(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}
