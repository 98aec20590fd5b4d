package graph

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/prism/internal/unit"
)

// Registry is the append-only computation graph.
//
// Layout is columnar: one array per attribute, indexed by NodeID. Parent
// edges are stored CSR-style (flat array + per-node ranges); child edges
// as intrusive singly-linked lists threaded through edge arrays, which
// keeps AddNode O(parents) and downstream traversal allocation-free.
type Registry struct {
	ops  []Op
	lags []uint32 // Prev lookback per node; 0 when unused
	meta []Meta

	parentsFlat   []NodeID
	parentsRanges [][2]uint32 // (start, count) into parentsFlat

	firstChild   []uint32 // head edge index per node, edgeNone when empty
	childTargets []NodeID
	nextChild    []uint32

	constants [][]float64 // payload per node; nil for non-const nodes
	guesses   map[NodeID]float64

	constraints []ConstraintPair
	solverVars  []NodeID

	usedNames map[string]struct{}

	revision uint64
	dataGen  uint64
}

const edgeNone = ^uint32(0)

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		guesses:   make(map[NodeID]float64),
		usedNames: make(map[string]struct{}),
	}
}

// Count returns the number of nodes.
func (r *Registry) Count() int { return len(r.ops) }

// Revision returns the structural revision, the compilation cache key.
func (r *Registry) Revision() uint64 { return r.revision }

// DataGeneration returns the constant-payload generation. Bumped by
// UpdateConstant; does not invalidate compiled programs.
func (r *Registry) DataGeneration() uint64 { return r.dataGen }

// Valid reports whether id names an existing node.
func (r *Registry) Valid(id NodeID) bool {
	return id != None && id.Index() < len(r.ops)
}

func (r *Registry) checkParents(parents ...NodeID) error {
	for _, p := range parents {
		if !r.Valid(p) {
			return &UnknownNodeError{ID: p}
		}
	}
	return nil
}

// uniqueName NFC-normalizes the requested name and suffixes "_N" until it
// is unique within the registry. Empty names get a positional default.
func (r *Registry) uniqueName(requested string, id NodeID) string {
	name := norm.NFC.String(requested)
	if name == "" {
		name = fmt.Sprintf("node_%d", uint32(id))
	}
	candidate := name
	for n := 1; ; n++ {
		if _, taken := r.usedNames[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("%s_%d", name, n)
	}
	r.usedNames[candidate] = struct{}{}
	return candidate
}

// addNode appends a node row and wires its edges. Callers have already
// validated parents. Bumps the structural revision.
func (r *Registry) addNode(op Op, lag uint32, parents []NodeID, name string) NodeID {
	id := NodeID(len(r.ops))

	start := uint32(len(r.parentsFlat))
	r.parentsFlat = append(r.parentsFlat, parents...)
	r.parentsRanges = append(r.parentsRanges, [2]uint32{start, uint32(len(parents))})

	for _, p := range parents {
		head := r.firstChild[p.Index()]
		edge := uint32(len(r.childTargets))
		r.childTargets = append(r.childTargets, id)
		r.nextChild = append(r.nextChild, head)
		r.firstChild[p.Index()] = edge
	}

	r.ops = append(r.ops, op)
	r.lags = append(r.lags, lag)
	r.meta = append(r.meta, Meta{Name: r.uniqueName(name, id)})
	r.firstChild = append(r.firstChild, edgeNone)
	r.constants = append(r.constants, nil)

	r.revision++
	return id
}

// AddConst appends a constant node. A single-element payload is a scalar;
// longer payloads are time series. The payload is retained, not copied.
func (r *Registry) AddConst(values []float64, name string) NodeID {
	id := r.addNode(OpConst, 0, nil, name)
	r.constants[id.Index()] = values
	return id
}

// AddBinop appends a two-parent arithmetic node.
func (r *Registry) AddBinop(op Op, p1, p2 NodeID, name string) (NodeID, error) {
	if !op.IsBinary() {
		return None, fmt.Errorf("op %s is not a binary operator", op)
	}
	if err := r.checkParents(p1, p2); err != nil {
		return None, err
	}
	return r.addNode(op, 0, []NodeID{p1, p2}, name), nil
}

// AddUnop appends a one-parent node (currently only negation).
func (r *Registry) AddUnop(op Op, p NodeID, name string) (NodeID, error) {
	if op != OpNeg {
		return None, fmt.Errorf("op %s is not a unary operator", op)
	}
	if err := r.checkParents(p); err != nil {
		return None, err
	}
	return r.addNode(op, 0, []NodeID{p}, name), nil
}

// AddPrev appends a temporal-lookback node: value at t is the parent's
// value at t-k, and 0.0 for t < k. k must be at least 1.
func (r *Registry) AddPrev(p NodeID, k uint32, name string) (NodeID, error) {
	if k < 1 {
		return None, fmt.Errorf("prev lookback must be >= 1, got %d", k)
	}
	if err := r.checkParents(p); err != nil {
		return None, err
	}
	return r.addNode(OpPrev, k, []NodeID{p}, name), nil
}

// AddSolverVar appends a decision variable for the constraint solver.
// Its value is written by the solver, not computed by the engine.
func (r *Registry) AddSolverVar(name string) NodeID {
	id := r.addNode(OpSolverVar, 0, nil, name)
	r.solverVars = append(r.solverVars, id)
	return id
}

// MustEqual registers the equality constraint lhs == rhs. The returned
// constraint node emits no arithmetic; it anchors the pair for the
// solver bridge. Constraint edges are virtual: topology ignores them
// outside solver scope.
func (r *Registry) MustEqual(lhs, rhs NodeID, name string) (NodeID, error) {
	if err := r.checkParents(lhs, rhs); err != nil {
		return None, err
	}
	id := r.addNode(OpConstraint, 0, []NodeID{lhs, rhs}, name)
	r.constraints = append(r.constraints, ConstraintPair{Node: id, LHS: lhs, RHS: rhs})
	return id, nil
}

// DeclareKind records a user kind assertion. Checked at validation.
func (r *Registry) DeclareKind(id NodeID, k Kind) error {
	if !r.Valid(id) {
		return &UnknownNodeError{ID: id}
	}
	r.meta[id.Index()].Kind = k
	r.revision++
	return nil
}

// DeclareUnit records a user unit assertion. Checked at validation.
func (r *Registry) DeclareUnit(id NodeID, u unit.Unit) error {
	if !r.Valid(id) {
		return &UnknownNodeError{ID: id}
	}
	r.meta[id.Index()].Unit = u
	r.meta[id.Index()].UnitDeclared = true
	r.revision++
	return nil
}

// UpdateConstant swaps a constant node's payload in place. The NodeID is
// preserved and the structural revision is NOT bumped: compiled programs
// stay valid, only ledger contents change.
func (r *Registry) UpdateConstant(id NodeID, values []float64) error {
	if !r.Valid(id) {
		return &UnknownNodeError{ID: id}
	}
	if r.ops[id.Index()] != OpConst {
		return fmt.Errorf("node %s (%s) is not a constant", id, r.ops[id.Index()])
	}
	r.constants[id.Index()] = values
	r.dataGen++
	return nil
}

// SetInitialGuess supplies the solver's starting value for a solver
// variable (default 0.0).
func (r *Registry) SetInitialGuess(id NodeID, v float64) error {
	if !r.Valid(id) {
		return &UnknownNodeError{ID: id}
	}
	if r.ops[id.Index()] != OpSolverVar {
		return fmt.Errorf("node %s (%s) is not a solver variable", id, r.ops[id.Index()])
	}
	r.guesses[id] = v
	return nil
}

// InitialGuess returns the starting value for a solver variable.
func (r *Registry) InitialGuess(id NodeID) float64 {
	return r.guesses[id]
}

// OpOf returns a node's operator tag.
func (r *Registry) OpOf(id NodeID) Op { return r.ops[id.Index()] }

// LagOf returns the lookback of a Prev node (0 otherwise).
func (r *Registry) LagOf(id NodeID) uint32 { return r.lags[id.Index()] }

// MetaOf returns a node's declared metadata.
func (r *Registry) MetaOf(id NodeID) Meta { return r.meta[id.Index()] }

// NameOf returns a node's unique name.
func (r *Registry) NameOf(id NodeID) string { return r.meta[id.Index()].Name }

// Parents returns a node's parent ids. The slice aliases registry
// storage; callers must not mutate it.
func (r *Registry) Parents(id NodeID) []NodeID {
	rg := r.parentsRanges[id.Index()]
	return r.parentsFlat[rg[0] : rg[0]+rg[1]]
}

// ForEachChild calls fn for every direct consumer of id.
func (r *Registry) ForEachChild(id NodeID, fn func(child NodeID)) {
	edge := r.firstChild[id.Index()]
	for edge != edgeNone {
		fn(r.childTargets[edge])
		edge = r.nextChild[edge]
	}
}

// ConstValues returns a constant node's payload (nil for non-consts).
func (r *Registry) ConstValues(id NodeID) []float64 {
	return r.constants[id.Index()]
}

// Constraints returns the registered equality constraints in
// registration order. The slice aliases registry storage.
func (r *Registry) Constraints() []ConstraintPair { return r.constraints }

// SolverVars returns the decision variables in registration order.
// The slice aliases registry storage.
func (r *Registry) SolverVars() []NodeID { return r.solverVars }

// Lookup resolves a unique name back to its node.
func (r *Registry) Lookup(name string) (NodeID, bool) {
	want := norm.NFC.String(name)
	for i := range r.meta {
		if r.meta[i].Name == want {
			return NodeID(i), true
		}
	}
	return None, false
}
