package graph

import (
	"fmt"

	"github.com/roach88/prism/internal/unit"
)

// NodeID is a dense index into the registry's columnar arrays.
// Stable for the life of the graph; never reused.
type NodeID uint32

// None is the sentinel for an absent node reference.
const None NodeID = 0xFFFFFFFF

// Index returns the id as a slice index.
func (id NodeID) Index() int { return int(id) }

func (id NodeID) String() string {
	if id == None {
		return "n<none>"
	}
	return fmt.Sprintf("n%d", uint32(id))
}

// Op tags a node with its operator.
type Op uint8

const (
	OpConst Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpPrev
	OpSolverVar
	OpConstraint
)

func (op Op) String() string {
	switch op {
	case OpConst:
		return "const"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpNeg:
		return "neg"
	case OpPrev:
		return "prev"
	case OpSolverVar:
		return "solver_var"
	case OpConstraint:
		return "constraint"
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Arity returns the number of parents the operator consumes.
func (op Op) Arity() int {
	switch op {
	case OpConst, OpSolverVar:
		return 0
	case OpNeg, OpPrev:
		return 1
	default:
		return 2
	}
}

// IsBinary reports whether op is a two-parent arithmetic operator.
func (op Op) IsBinary() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	}
	return false
}

// Kind is the temporal kind of a node's value.
type Kind uint8

const (
	// KindUnknown means no kind has been inferred or declared yet.
	// Unknown propagates through the algebra and defers to declaration.
	KindUnknown Kind = iota
	// KindStock is a quantity measured at an instant (e.g. Debt).
	KindStock
	// KindFlow is a quantity measured over a period (e.g. Revenue).
	KindFlow
	// KindRate is a dimensionless or per-unit-time ratio.
	KindRate
	// KindDimensionless is a pure number; combines freely with anything.
	KindDimensionless
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindStock:
		return "stock"
	case KindFlow:
		return "flow"
	case KindRate:
		return "rate"
	case KindDimensionless:
		return "dimensionless"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a user-facing kind name to its tag.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "stock":
		return KindStock, nil
	case "flow":
		return KindFlow, nil
	case "rate":
		return KindRate, nil
	case "dimensionless":
		return KindDimensionless, nil
	}
	return KindUnknown, fmt.Errorf("unknown temporal kind %q", s)
}

// Meta is a node's declared metadata. Declarations are assertions:
// validation checks them against canonical inference.
type Meta struct {
	Name         string
	Kind         Kind // KindUnknown means "not declared"
	Unit         unit.Unit
	UnitDeclared bool
}

// ConstraintPair is one equality constraint: lhs must equal rhs at a
// solution. Constraints never participate in arithmetic execution.
type ConstraintPair struct {
	Node NodeID // the constraint node itself
	LHS  NodeID
	RHS  NodeID
}

// UnknownNodeError reports a reference to an id outside the registry.
type UnknownNodeError struct {
	ID NodeID
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %s", e.ID)
}
