package bytecode

import (
	"fmt"
	"strings"

	"github.com/roach88/prism/internal/graph"
)

// Program is a compiled instruction tape plus the solver metadata the
// bridge consumes. Row indices equal NodeIDs, so a program compiled for
// a subset of the graph executes against the same ledger layout as the
// full build.
type Program struct {
	Instructions []Instruction

	// EntryRowCount is the node count at compile time; the ledger must
	// hold at least this many rows before execution.
	EntryRowCount int

	// SolverRoots are the decision variables in registration order.
	SolverRoots []graph.NodeID

	// ConstraintPairs are the equality constraints the solver drives to
	// zero residual.
	ConstraintPairs []graph.ConstraintPair

	// ScalarRows marks nodes that are structurally scalar: value reads
	// dispatch on it to unwrap single-element rows.
	ScalarRows *Bitset

	// Dirty is the mask of recomputed nodes on a partial build; nil for
	// full builds.
	Dirty *Bitset

	// Revision is the registry revision this program was built at.
	Revision uint64
}

// IsPartial reports whether the program covers only a dirty subset.
func (p *Program) IsPartial() bool { return p.Dirty != nil }

// Compile lowers the full graph, given its topological order.
func Compile(r *graph.Registry, order []graph.NodeID) *Program {
	return build(r, order, nil)
}

// CompilePartial lowers only the dirty set, which must already be in
// topological order (see topo.DownstreamFrom). Instructions read
// non-dirty inputs from whatever the ledger currently holds.
func CompilePartial(r *graph.Registry, dirty []graph.NodeID) *Program {
	mask := NewBitset(r.Count())
	for _, id := range dirty {
		mask.Set(id.Index())
	}
	return build(r, dirty, mask)
}

func build(r *graph.Registry, order []graph.NodeID, dirty *Bitset) *Program {
	p := &Program{
		EntryRowCount:   r.Count(),
		SolverRoots:     r.SolverVars(),
		ConstraintPairs: r.Constraints(),
		ScalarRows:      scalarRows(r),
		Dirty:           dirty,
		Revision:        r.Revision(),
	}

	for _, id := range order {
		op, ok := opcodeFor(r.OpOf(id))
		if !ok {
			continue // const, solver var, constraint: data, not code
		}
		parents := r.Parents(id)
		ins := Instruction{
			Op:     op,
			Target: uint32(id),
			P1:     uint32(parents[0]),
			P2:     NoOperand,
		}
		switch op {
		case OpcodePrev:
			ins.P2 = r.LagOf(id) // immediate, not a row index
		case OpcodeNeg:
			// unary: p2 stays NoOperand
		default:
			ins.P2 = uint32(parents[1])
		}
		p.Instructions = append(p.Instructions, ins)
	}
	return p
}

// scalarRows computes the structural-scalar property for every node:
// scalar iff Const with payload length 1, or all parents scalar and the
// op is not Prev. Source ops without parents (solver variables) are
// scalar by the vacuous case.
func scalarRows(r *graph.Registry) *Bitset {
	b := NewBitset(r.Count())
	for i := 0; i < r.Count(); i++ {
		id := graph.NodeID(i)
		switch r.OpOf(id) {
		case graph.OpConst:
			if len(r.ConstValues(id)) == 1 {
				b.Set(i)
			}
		case graph.OpPrev:
			// never scalar: lookback only means anything on a series
		default:
			allScalar := true
			for _, p := range r.Parents(id) {
				if !b.Has(p.Index()) {
					allScalar = false
					break
				}
			}
			if allScalar {
				b.Set(i)
			}
		}
	}
	return b
}

// Encode serializes the tape in its 16-byte little-endian wire form.
func (p *Program) Encode() []byte {
	out := make([]byte, len(p.Instructions)*InstructionSize)
	for i, ins := range p.Instructions {
		ins.Encode(out[i*InstructionSize:])
	}
	return out
}

// DecodeTape parses a wire-form tape back into instructions.
func DecodeTape(src []byte) ([]Instruction, error) {
	if len(src)%InstructionSize != 0 {
		return nil, fmt.Errorf("tape length %d is not a multiple of %d", len(src), InstructionSize)
	}
	out := make([]Instruction, len(src)/InstructionSize)
	for i := range out {
		out[i] = DecodeInstruction(src[i*InstructionSize:])
	}
	return out, nil
}

// Disassemble renders the tape for audit output; name resolves a row to
// its node name (nil for bare row numbers).
func (p *Program) Disassemble(name func(graph.NodeID) string) string {
	var b strings.Builder
	for i, ins := range p.Instructions {
		fmt.Fprintf(&b, "%04d  %s", i, ins)
		if name != nil {
			fmt.Fprintf(&b, "   ; %s", name(graph.NodeID(ins.Target)))
		}
		b.WriteString("\n")
	}
	return b.String()
}
