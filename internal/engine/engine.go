// Package engine executes compiled instruction tapes against the
// ledger.
//
// Execution is strictly single-threaded and allocation-free: one linear
// pass over the tape, dispatching each instruction to its kernel on row
// slices derived from the instruction's operand indices. Instructions
// run in exactly the order the compiler emitted (Kahn order with NodeID
// tie-breaking); that ordering is part of the public contract because
// it determines which lookback values exist when a consumer reads them.
//
// The engine cannot fail arithmetically: NaN and Inf propagate through
// rows per IEEE 754 and surface at value reads. Structural failures
// (cycles, unknown nodes) are pre-empted by the validator and compiler;
// the only error here is a tape/ledger shape mismatch, which indicates
// a caller bug.
package engine

import (
	"fmt"

	"github.com/roach88/prism/internal/bytecode"
	"github.com/roach88/prism/internal/graph"
	"github.com/roach88/prism/internal/kernel"
	"github.com/roach88/prism/internal/ledger"
)

// Run executes the tape over the ledger and returns the ledger for
// chaining.
func Run(p *bytecode.Program, led *ledger.Ledger) (*ledger.Ledger, error) {
	if led.Rows() < p.EntryRowCount {
		return nil, fmt.Errorf("ledger holds %d rows, program requires %d", led.Rows(), p.EntryRowCount)
	}

	for _, ins := range p.Instructions {
		dst := led.Row(graph.NodeID(ins.Target))
		a := led.Row(graph.NodeID(ins.P1))

		switch ins.Op {
		case bytecode.OpcodeAdd:
			kernel.Add(dst, a, led.Row(graph.NodeID(ins.P2)))
		case bytecode.OpcodeSub:
			kernel.Sub(dst, a, led.Row(graph.NodeID(ins.P2)))
		case bytecode.OpcodeMul:
			kernel.Mul(dst, a, led.Row(graph.NodeID(ins.P2)))
		case bytecode.OpcodeDiv:
			kernel.Div(dst, a, led.Row(graph.NodeID(ins.P2)))
		case bytecode.OpcodeNeg:
			kernel.Neg(dst, a)
		case bytecode.OpcodePrev:
			kernel.Prev(dst, a, int(ins.P2)) // p2 is the lag immediate
		default:
			return nil, fmt.Errorf("unknown opcode %d in tape", uint16(ins.Op))
		}
	}
	return led, nil
}
