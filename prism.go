// Package prism is a verifiable calculation engine for financial
// modeling.
//
// Users build a computation graph of constants (scalar or time-series),
// derived arithmetic and temporal-lookback expressions, and solver
// variables constrained by equalities. The engine compiles the graph
// into a flat instruction tape, executes it vectorized over the time
// axis, statically validates temporal kinds and physical units, and
// resolves circular constraint systems through a nonlinear solver
// bridge.
//
// The Model type is the host API consumed by DSL and FFI layers:
//
//	m := prism.New(prism.WithModelLen(3))
//	a, _ := m.AddConst([]float64{3, 4, 5}, "a")
//	b, _ := m.AddConst([]float64{1, 1, 1}, "b")
//	c, _ := m.AddBinop(prism.OpSub, a, b, "c")
//	d, _ := m.AddBinop(prism.OpMul, a, c, "d")
//	if _, err := m.Compute(); err != nil { ... }
//	v, _ := m.GetValue(d) // [6 12 20]
//
// All calls are single-threaded and synchronous; a compute or solve
// call runs to completion on the caller's thread. Nested compute calls
// are forbidden and return ErrReentrantCompute.
package prism

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/prism/internal/graph"
	"github.com/roach88/prism/internal/ledger"
	"github.com/roach88/prism/internal/solver"
	"github.com/roach88/prism/internal/topo"
	"github.com/roach88/prism/internal/unit"
	"github.com/roach88/prism/internal/validate"
)

// NodeID identifies a node in the model graph.
type NodeID = graph.NodeID

// None is the sentinel for an absent node reference.
const None = graph.None

// Op is a node operator tag.
type Op = graph.Op

// Operator tags accepted by AddBinop and AddUnop.
const (
	OpAdd = graph.OpAdd
	OpSub = graph.OpSub
	OpMul = graph.OpMul
	OpDiv = graph.OpDiv
	OpNeg = graph.OpNeg
)

// Kind is a temporal kind tag for DeclareType.
type Kind = graph.Kind

// Temporal kinds.
const (
	KindUnknown       = graph.KindUnknown
	KindStock         = graph.KindStock
	KindFlow          = graph.KindFlow
	KindRate          = graph.KindRate
	KindDimensionless = graph.KindDimensionless
)

// Diagnostic is one collected validation finding.
type Diagnostic = validate.Diagnostic

// SolverIteration is one convergence record of the last solve.
type SolverIteration = ledger.SolverIteration

// SolveOptions tunes Solve; the zero value uses tolerance 1e-8 and 100
// iterations with no wall-clock budget.
type SolveOptions = solver.Options

// ErrReentrantCompute is returned when a compute, recompute, or solve
// is entered while another one is in flight on the same model.
var ErrReentrantCompute = errors.New("reentrant compute call")

// ValidationFailure carries the collected diagnostics when compute is
// refused. Every diagnostic in the graph is present; validation never
// stops at the first.
type ValidationFailure struct {
	Diagnostics []Diagnostic
}

func (e *ValidationFailure) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Error()
	}
	return fmt.Sprintf("validation failed with %d diagnostic(s): %s",
		len(e.Diagnostics), strings.Join(msgs, "; "))
}

// SolveFailure is the unconverged-solve error, re-exported from the
// bridge so callers can inspect the reason and convergence history.
type SolveFailure = solver.Failure

// ParseKind maps a user-facing kind name ("stock", "flow", "rate",
// "dimensionless") to its tag.
func ParseKind(s string) (Kind, error) { return graph.ParseKind(s) }

// ParseUnit parses a unit expression into its canonical form, e.g.
// "USD*MWh^-1" → "USD/MWh". Useful for hosts that validate user input
// before declaring.
func ParseUnit(s string) (string, error) {
	u, err := unit.Parse(s)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// CycleNodes extracts the residual cycle set from a CycleDetected
// error, or nil if err is not one.
func CycleNodes(err error) []NodeID {
	var cyc *topo.CycleError
	if errors.As(err, &cyc) {
		return cyc.Nodes
	}
	return nil
}
