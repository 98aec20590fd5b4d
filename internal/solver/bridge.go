package solver

import (
	"fmt"

	"github.com/roach88/prism/internal/bytecode"
	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/graph"
	"github.com/roach88/prism/internal/ledger"
)

// Bridge implements Problem on top of the engine.
//
// The decision vector flattens every solver variable's row over the
// model length (var-major), and the residual vector flattens every
// constraint pair the same way, matching the layout the external
// solver's C adapter marshals. For scalar models both collapse to one
// entry per variable or pair.
type Bridge struct {
	vars  []graph.NodeID
	pairs []graph.ConstraintPair

	// program covers the downstream subgraph of the solver variables;
	// everything else keeps its base-ledger value.
	program *bytecode.Program
	base    *ledger.Ledger
	scratch *ledger.Ledger
	guesses []float64 // per-variable scalar guess

	modelLen int
}

// NewBridge builds the callback problem. program must be the partial
// program covering the downstream of vars; base must hold a fully
// computed ledger.
func NewBridge(vars []graph.NodeID, pairs []graph.ConstraintPair, program *bytecode.Program, base *ledger.Ledger, guesses []float64) (*Bridge, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("no solver variables registered")
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no constraints registered")
	}
	if len(guesses) != len(vars) {
		return nil, fmt.Errorf("got %d initial guesses for %d variables", len(guesses), len(vars))
	}
	return &Bridge{
		vars:     vars,
		pairs:    pairs,
		program:  program,
		base:     base,
		scratch:  base.Clone(),
		guesses:  guesses,
		modelLen: base.ModelLen(),
	}, nil
}

// NumVars implements Problem.
func (b *Bridge) NumVars() int { return len(b.vars) * b.modelLen }

// NumResiduals implements Problem.
func (b *Bridge) NumResiduals() int { return len(b.pairs) * b.modelLen }

// InitialGuess implements Problem: each variable's scalar guess
// broadcast over its row.
func (b *Bridge) InitialGuess() []float64 {
	x := make([]float64, b.NumVars())
	for i, g := range b.guesses {
		for t := 0; t < b.modelLen; t++ {
			x[i*b.modelLen+t] = g
		}
	}
	return x
}

// evalAt writes the trial point into the solver-variable rows of the
// scratch ledger and re-executes the downstream subgraph.
func (b *Bridge) evalAt(x []float64) error {
	if err := b.scratch.CopyFrom(b.base); err != nil {
		return err
	}
	for i, id := range b.vars {
		copy(b.scratch.Row(id), x[i*b.modelLen:(i+1)*b.modelLen])
	}
	_, err := engine.Run(b.program, b.scratch)
	return err
}

// EvalF implements Problem. The objective is constant zero: Prism
// solves for constraint satisfaction only.
func (b *Bridge) EvalF(x []float64) (float64, error) { return 0, nil }

// EvalGradF implements Problem: gradient of a constant objective.
func (b *Bridge) EvalGradF(x, grad []float64) error {
	for i := range grad {
		grad[i] = 0
	}
	return nil
}

// EvalG implements Problem: residual = lhs − rhs per pair per step.
func (b *Bridge) EvalG(x, g []float64) error {
	if err := b.evalAt(x); err != nil {
		return err
	}
	for i, pair := range b.pairs {
		lhs := b.scratch.Row(pair.LHS)
		rhs := b.scratch.Row(pair.RHS)
		for t := 0; t < b.modelLen; t++ {
			g[i*b.modelLen+t] = lhs[t] - rhs[t]
		}
	}
	return nil
}

// EvalJacG implements Problem: dense forward finite differences, one
// residual evaluation per decision coordinate, step max(1e-8, 1e-6*|x|).
func (b *Bridge) EvalJacG(x, jac []float64) error {
	n := b.NumVars()
	m := b.NumResiduals()

	g0 := make([]float64, m)
	if err := b.EvalG(x, g0); err != nil {
		return err
	}

	xj := make([]float64, n)
	copy(xj, x)
	gj := make([]float64, m)
	for j := 0; j < n; j++ {
		eps := fdStep(x[j])
		xj[j] = x[j] + eps
		if err := b.EvalG(xj, gj); err != nil {
			return err
		}
		xj[j] = x[j]
		for i := 0; i < m; i++ {
			jac[i*n+j] = (gj[i] - g0[i]) / eps
		}
	}
	return nil
}

// Commit writes a solution into the real ledger and re-executes the
// downstream subgraph so every dependent row reflects it.
func (b *Bridge) Commit(x []float64, led *ledger.Ledger) error {
	for i, id := range b.vars {
		copy(led.Row(id), x[i*b.modelLen:(i+1)*b.modelLen])
	}
	_, err := engine.Run(b.program, led)
	return err
}
