package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism"
)

func loadFrom(t *testing.T, content string) *Manifest {
	t.Helper()
	path := filepath.Join(t.TempDir(), "m.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	man, err := LoadManifest(path)
	require.NoError(t, err)
	return man
}

func TestLoadManifest_Financing(t *testing.T) {
	man, err := LoadManifest("testdata/financing.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, man.ModelLen)
	assert.Len(t, man.Nodes, 5)
	require.Len(t, man.Constraints, 1)
	assert.Equal(t, []string{"financing_fee", "fee_calc"}, man.Constraints[0].Equal)
}

func TestLoadManifest_Missing(t *testing.T) {
	_, err := LoadManifest("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoadManifest_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model_len: 2\n"), 0o644))
	_, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestBuildModel_FinancingSolves(t *testing.T) {
	man, err := LoadManifest("testdata/financing.yaml")
	require.NoError(t, err)
	m, err := BuildModel(man)
	require.NoError(t, err)

	view, err := m.Solve(prism.SolveOptions{})
	require.NoError(t, err)

	fee, ok := m.Lookup("financing_fee")
	require.True(t, ok)
	v, err := view.Value(fee)
	require.NoError(t, err)
	assert.InDelta(t, 20.4081632653, v.Scalar(), 1e-8)
}

func TestBuildModel_PrevAndNeg(t *testing.T) {
	man := loadFrom(t, `
model_len: 3
nodes:
  - name: x
    const: [1, 2, 3]
  - name: lagged
    op: prev
    args: [x]
    lag: 1
  - name: flipped
    op: neg
    args: [x]
`)
	m, err := BuildModel(man)
	require.NoError(t, err)
	_, err = m.Compute()
	require.NoError(t, err)

	lagged, _ := m.Lookup("lagged")
	v, err := m.GetValue(lagged)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, v.Series())

	flipped, _ := m.Lookup("flipped")
	v, err = m.GetValue(flipped)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -2, -3}, v.Series())
}

func TestBuildModel_SolverGuess(t *testing.T) {
	man := loadFrom(t, `
nodes:
  - name: target
    const: [9]
  - name: x
    solver_var: true
    guess: 2
constraints:
  - name: pin
    equal: [x, target]
`)
	m, err := BuildModel(man)
	require.NoError(t, err)
	view, err := m.Solve(prism.SolveOptions{})
	require.NoError(t, err)

	x, _ := m.Lookup("x")
	v, err := view.Value(x)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, v.Scalar(), 1e-8)
}

func TestBuildModel_Errors(t *testing.T) {
	cases := map[string]string{
		"duplicate name": `
nodes:
  - name: a
    const: [1]
  - name: a
    const: [2]
`,
		"unknown op": `
nodes:
  - name: a
    const: [1]
  - name: b
    op: pow
    args: [a, a]
`,
		"undeclared arg": `
nodes:
  - name: b
    op: add
    args: [x, y]
`,
		"wrong arity": `
nodes:
  - name: a
    const: [1]
  - name: b
    op: neg
    args: [a, a]
`,
		"bad kind": `
nodes:
  - name: a
    const: [1]
    kind: velocity
`,
		"bad constraint": `
nodes:
  - name: a
    const: [1]
constraints:
  - name: c
    equal: [a]
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			man := loadFrom(t, content)
			_, err := BuildModel(man)
			assert.Error(t, err)
		})
	}
}

func TestBuildModel_DeclaresKindAndUnit(t *testing.T) {
	man := loadFrom(t, `
model_len: 4
nodes:
  - name: balance
    const: [100, 105, 112, 120]
    kind: stock
    unit: USD
  - name: lagged
    op: prev
    args: [balance]
    lag: 1
  - name: net_flow
    op: sub
    args: [balance, lagged]
    kind: flow
`)
	m, err := BuildModel(man)
	require.NoError(t, err)
	diags, err := m.Validate()
	require.NoError(t, err)
	assert.Empty(t, diags)
}
