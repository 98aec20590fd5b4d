package prism

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/prism/internal/bytecode"
	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/graph"
	"github.com/roach88/prism/internal/ledger"
	"github.com/roach88/prism/internal/solver"
	"github.com/roach88/prism/internal/topo"
	"github.com/roach88/prism/internal/unit"
	"github.com/roach88/prism/internal/validate"
)

// Model is the host-facing calculation session: an append-only graph,
// its value ledger, and the compilation cache that ties them together.
//
// A Model is not safe for concurrent use. Compute, Recompute, and
// Solve are mutually exclusive; entering one while another is in
// flight returns ErrReentrantCompute.
type Model struct {
	reg      *graph.Registry
	led      *ledger.Ledger
	modelLen int

	logger  *slog.Logger
	backend SolverBackend
	valOpts validate.Options

	// cached is the last full program; valid while its Revision matches
	// the registry. Constant updates do not bump the revision, so the
	// cache survives them and Recompute can reuse the row layout.
	cached *bytecode.Program

	inFlight bool
	stats    Telemetry
}

// Telemetry counts engine activity since construction. Read it with
// Stats; the counters are informational and never reset.
type Telemetry struct {
	FullCompiles    uint64
	PartialCompiles uint64
	EngineRuns      uint64
	Solves          uint64

	// LastPartialInstructions is the tape length of the most recent
	// partial build, 0 before any Recompute.
	LastPartialInstructions int
}

// New creates an empty model.
func New(opts ...Option) *Model {
	m := &Model{
		reg:      graph.New(),
		modelLen: 1,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		backend:  solver.GaussNewton{},
	}
	for _, o := range opts {
		o(m)
	}
	m.led = ledger.New(0, m.modelLen)
	return m
}

// ModelLen returns the time-axis width fixed at construction.
func (m *Model) ModelLen() int { return m.modelLen }

// NodeCount returns the number of registered nodes.
func (m *Model) NodeCount() int { return m.reg.Count() }

// Stats returns a snapshot of the telemetry counters.
func (m *Model) Stats() Telemetry { return m.stats }

// Trace returns the convergence history of the last Solve.
func (m *Model) Trace() []SolverIteration { return m.led.Trace() }

func (m *Model) begin() error {
	if m.inFlight {
		return ErrReentrantCompute
	}
	m.inFlight = true
	return nil
}

func (m *Model) end() { m.inFlight = false }

func (m *Model) checkShape(values []float64) error {
	if len(values) == 1 || len(values) == m.modelLen {
		return nil
	}
	return &ledger.DimensionError{Expected: m.modelLen, Got: len(values)}
}

// AddConst registers a constant node. A single-element payload is a
// scalar (broadcast over the time axis in series models); a payload of
// exactly the model length is a time series.
func (m *Model) AddConst(values []float64, name string) (NodeID, error) {
	if err := m.checkShape(values); err != nil {
		return None, err
	}
	id := m.reg.AddConst(values, name)
	m.led.Resize(m.reg.Count(), m.modelLen)
	if err := m.led.WriteConst(id, values); err != nil {
		return None, err
	}
	return id, nil
}

// AddSeries registers a constant time series. Unlike AddConst it never
// broadcasts: the payload must span the full model length.
func (m *Model) AddSeries(values []float64, name string) (NodeID, error) {
	if len(values) != m.modelLen {
		return None, &ledger.DimensionError{Expected: m.modelLen, Got: len(values)}
	}
	return m.AddConst(values, name)
}

// AddBinop registers a two-operand arithmetic node (OpAdd, OpSub,
// OpMul, OpDiv).
func (m *Model) AddBinop(op Op, p1, p2 NodeID, name string) (NodeID, error) {
	id, err := m.reg.AddBinop(op, p1, p2, name)
	if err != nil {
		return None, err
	}
	m.led.Resize(m.reg.Count(), m.modelLen)
	return id, nil
}

// AddUnop registers a one-operand node (OpNeg).
func (m *Model) AddUnop(op Op, p NodeID, name string) (NodeID, error) {
	id, err := m.reg.AddUnop(op, p, name)
	if err != nil {
		return None, err
	}
	m.led.Resize(m.reg.Count(), m.modelLen)
	return id, nil
}

// AddPrev registers a temporal lookback: value at step t is the
// parent's value at t−k, and 0.0 for the first k steps.
func (m *Model) AddPrev(p NodeID, k uint32, name string) (NodeID, error) {
	id, err := m.reg.AddPrev(p, k, name)
	if err != nil {
		return None, err
	}
	m.led.Resize(m.reg.Count(), m.modelLen)
	return id, nil
}

// AddSolverVar registers a decision variable whose value is found by
// Solve rather than computed.
func (m *Model) AddSolverVar(name string) NodeID {
	id := m.reg.AddSolverVar(name)
	m.led.Resize(m.reg.Count(), m.modelLen)
	return id
}

// SetInitialGuess supplies the solver's starting value for a solver
// variable (default 0.0).
func (m *Model) SetInitialGuess(id NodeID, v float64) error {
	return m.reg.SetInitialGuess(id, v)
}

// MustEqual registers the equality constraint lhs == rhs for Solve.
// The returned node anchors the constraint; it carries no value.
func (m *Model) MustEqual(lhs, rhs NodeID, name string) (NodeID, error) {
	id, err := m.reg.MustEqual(lhs, rhs, name)
	if err != nil {
		return None, err
	}
	m.led.Resize(m.reg.Count(), m.modelLen)
	return id, nil
}

// DeclareType asserts a node's temporal kind and/or unit, checked
// against inference at validation time. Pass KindUnknown to leave the
// kind alone and "" to leave the unit alone. Declarations on nodes
// inference cannot reach seed the inference instead of fighting it.
func (m *Model) DeclareType(id NodeID, kind Kind, unitExpr string) error {
	if kind != KindUnknown {
		if err := m.reg.DeclareKind(id, kind); err != nil {
			return err
		}
	}
	if unitExpr != "" {
		u, err := unit.Parse(unitExpr)
		if err != nil {
			return err
		}
		if err := m.reg.DeclareUnit(id, u); err != nil {
			return err
		}
	}
	return nil
}

// UpdateConstant swaps a constant node's payload. The compiled program
// stays valid: only ledger contents change, so a following Recompute
// reuses the cached tape.
func (m *Model) UpdateConstant(id NodeID, values []float64) error {
	if err := m.checkShape(values); err != nil {
		return err
	}
	if err := m.reg.UpdateConstant(id, values); err != nil {
		return err
	}
	return m.led.WriteConst(id, values)
}

// Nodes returns the value-carrying node ids in registration order.
// Constraint anchors are excluded: they hold no value.
func (m *Model) Nodes() []NodeID {
	out := make([]NodeID, 0, m.reg.Count())
	for i := 0; i < m.reg.Count(); i++ {
		id := NodeID(i)
		if m.reg.OpOf(id) != graph.OpConstraint {
			out = append(out, id)
		}
	}
	return out
}

// Lookup resolves a node by its unique name.
func (m *Model) Lookup(name string) (NodeID, bool) { return m.reg.Lookup(name) }

// NodeName returns a node's unique name.
func (m *Model) NodeName(id NodeID) (string, error) {
	if !m.reg.Valid(id) {
		return "", &graph.UnknownNodeError{ID: id}
	}
	return m.reg.NameOf(id), nil
}

// program returns the cached full program, rebuilding it when the
// structural revision moved: topological sort, validation, then
// lowering. Validation failures refuse compilation outright.
func (m *Model) program() (*bytecode.Program, error) {
	if m.cached != nil && m.cached.Revision == m.reg.Revision() {
		return m.cached, nil
	}
	order, err := topo.Sort(m.reg)
	if err != nil {
		return nil, err
	}
	res := validate.Run(m.reg, order, m.valOpts)
	if !res.OK() {
		return nil, &ValidationFailure{Diagnostics: res.Diagnostics}
	}
	p := bytecode.Compile(m.reg, order)
	m.cached = p
	m.stats.FullCompiles++
	m.logger.Debug("compiled full program",
		"revision", p.Revision, "instructions", len(p.Instructions), "nodes", m.reg.Count())
	return p, nil
}

// Validate runs static validation without computing. The returned
// diagnostics are exhaustive; the error is non-nil only for failures
// that preempt validation itself, such as a dependency cycle.
func (m *Model) Validate() ([]Diagnostic, error) {
	order, err := topo.Sort(m.reg)
	if err != nil {
		return nil, err
	}
	return validate.Run(m.reg, order, m.valOpts).Diagnostics, nil
}

// Compute builds (or reuses) the full program and executes it.
func (m *Model) Compute() (LedgerView, error) {
	if err := m.begin(); err != nil {
		return LedgerView{}, err
	}
	defer m.end()
	return m.computeLocked()
}

func (m *Model) computeLocked() (LedgerView, error) {
	p, err := m.program()
	if err != nil {
		return LedgerView{}, err
	}
	if _, err := engine.Run(p, m.led); err != nil {
		return LedgerView{}, err
	}
	m.stats.EngineRuns++
	return LedgerView{m: m}, nil
}

// Recompute re-executes only the downstream of the changed constants
// against the cached program's row layout. The changed payloads must
// already be in place (UpdateConstant writes them). When the structure
// changed since the last Compute, it falls back to a full build.
func (m *Model) Recompute(changed []NodeID) (LedgerView, error) {
	if err := m.begin(); err != nil {
		return LedgerView{}, err
	}
	defer m.end()

	for _, id := range changed {
		if !m.reg.Valid(id) {
			return LedgerView{}, &graph.UnknownNodeError{ID: id}
		}
	}
	if m.cached == nil || m.cached.Revision != m.reg.Revision() {
		return m.computeLocked()
	}

	dirty := topo.DownstreamFrom(m.reg, changed)
	partial := bytecode.CompilePartial(m.reg, dirty)
	m.stats.PartialCompiles++
	m.stats.LastPartialInstructions = len(partial.Instructions)
	m.logger.Debug("compiled partial program",
		"changed", len(changed), "dirty", len(dirty), "instructions", len(partial.Instructions))

	if _, err := engine.Run(partial, m.led); err != nil {
		return LedgerView{}, err
	}
	m.stats.EngineRuns++
	return LedgerView{m: m}, nil
}

// Solve computes the model, then drives the solver variables until
// every MustEqual constraint holds within tolerance. On success the
// ledger reflects the converged system; on failure it is left at the
// base computation and the error unwraps to a *SolveFailure carrying
// the convergence history.
func (m *Model) Solve(opts SolveOptions) (LedgerView, error) {
	if err := m.begin(); err != nil {
		return LedgerView{}, err
	}
	defer m.end()

	if _, err := m.computeLocked(); err != nil {
		return LedgerView{}, err
	}

	vars := m.reg.SolverVars()
	dirty := topo.DownstreamFrom(m.reg, vars)
	partial := bytecode.CompilePartial(m.reg, dirty)

	guesses := make([]float64, len(vars))
	for i, v := range vars {
		guesses[i] = m.reg.InitialGuess(v)
	}
	bridge, err := solver.NewBridge(vars, m.reg.Constraints(), partial, m.led, guesses)
	if err != nil {
		return LedgerView{}, err
	}

	if opts.Logger == nil {
		opts.Logger = m.logger
	}
	m.led.ClearTrace()
	m.logger.Info("solve started",
		"backend", m.backend.Name(), "vars", len(vars), "constraints", len(m.reg.Constraints()))

	x, err := m.backend.Solve(bridge, opts, m.led.AppendTrace)
	if err != nil {
		return LedgerView{}, fmt.Errorf("solve: %w", err)
	}
	if err := bridge.Commit(x, m.led); err != nil {
		return LedgerView{}, err
	}
	m.stats.Solves++
	m.logger.Info("solve converged", "iterations", len(m.led.Trace()))
	return LedgerView{m: m}, nil
}

// GetValue reads a node's computed value, unwrapping structurally
// scalar rows. The shape dispatch uses the scalar table cached at
// compile time, so a valid program must be buildable.
func (m *Model) GetValue(id NodeID) (Value, error) {
	if !m.reg.Valid(id) {
		return Value{}, &graph.UnknownNodeError{ID: id}
	}
	p, err := m.program()
	if err != nil {
		return Value{}, err
	}
	row := m.led.Row(id)
	out := make([]float64, len(row))
	copy(out, row)
	return Value{scalar: p.ScalarRows.Has(id.Index()), data: out}, nil
}

// Disassemble renders the full program's tape with node names, for
// audit output.
func (m *Model) Disassemble() (string, error) {
	p, err := m.program()
	if err != nil {
		return "", err
	}
	return p.Disassemble(m.reg.NameOf), nil
}

// LedgerView is a read handle over a computed model, returned by
// Compute, Recompute, and Solve.
type LedgerView struct{ m *Model }

// Value reads a node's value; see Model.GetValue.
func (v LedgerView) Value(id NodeID) (Value, error) { return v.m.GetValue(id) }

// Trace returns the convergence history of the last solve.
func (v LedgerView) Trace() []SolverIteration { return v.m.Trace() }
