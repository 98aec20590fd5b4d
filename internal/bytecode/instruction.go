package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/roach88/prism/internal/graph"
)

// Opcode is the dense instruction tag. Values follow the enumeration
// order of the registry's op set; the numbering is part of the binary
// format.
type Opcode uint16

const (
	// OpcodeNop occupies the Const slot; constant rows are data, never
	// code, so no instruction carries it.
	OpcodeNop Opcode = iota
	OpcodeAdd
	OpcodeSub
	OpcodeMul
	OpcodeDiv
	OpcodeNeg
	// OpcodePrev is the reserved variant whose p2 field is an immediate
	// lookback count, not a ledger row.
	OpcodePrev
)

func (op Opcode) String() string {
	switch op {
	case OpcodeNop:
		return "nop"
	case OpcodeAdd:
		return "add"
	case OpcodeSub:
		return "sub"
	case OpcodeMul:
		return "mul"
	case OpcodeDiv:
		return "div"
	case OpcodeNeg:
		return "neg"
	case OpcodePrev:
		return "prev"
	}
	return fmt.Sprintf("opcode(%d)", uint16(op))
}

// NoOperand is the sentinel row index for an absent p2 operand.
const NoOperand = uint32(0xFFFFFFFF)

// InstructionSize is the fixed record width in bytes.
const InstructionSize = 16

// Instruction is one 16-byte execution record. Target and P1 are ledger
// row indices; P2 is a row index, the sentinel NoOperand for unary ops,
// or an immediate lag for OpcodePrev.
type Instruction struct {
	Op     Opcode
	_      uint16 // pad; keeps the record at 16 bytes
	Target uint32
	P1     uint32
	P2     uint32
}

// Encode writes the little-endian wire form into dst, which must hold
// at least InstructionSize bytes.
func (ins Instruction) Encode(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:2], uint16(ins.Op))
	binary.LittleEndian.PutUint16(dst[2:4], 0)
	binary.LittleEndian.PutUint32(dst[4:8], ins.Target)
	binary.LittleEndian.PutUint32(dst[8:12], ins.P1)
	binary.LittleEndian.PutUint32(dst[12:16], ins.P2)
}

// DecodeInstruction reads one record from src.
func DecodeInstruction(src []byte) Instruction {
	return Instruction{
		Op:     Opcode(binary.LittleEndian.Uint16(src[0:2])),
		Target: binary.LittleEndian.Uint32(src[4:8]),
		P1:     binary.LittleEndian.Uint32(src[8:12]),
		P2:     binary.LittleEndian.Uint32(src[12:16]),
	}
}

func (ins Instruction) String() string {
	switch ins.Op {
	case OpcodeNeg:
		return fmt.Sprintf("%-4s r%d <- r%d", ins.Op, ins.Target, ins.P1)
	case OpcodePrev:
		return fmt.Sprintf("%-4s r%d <- r%d lag=%d", ins.Op, ins.Target, ins.P1, ins.P2)
	default:
		return fmt.Sprintf("%-4s r%d <- r%d, r%d", ins.Op, ins.Target, ins.P1, ins.P2)
	}
}

// opcodeFor maps a registry op to its instruction tag. Only arithmetic
// ops have one.
func opcodeFor(op graph.Op) (Opcode, bool) {
	switch op {
	case graph.OpAdd:
		return OpcodeAdd, true
	case graph.OpSub:
		return OpcodeSub, true
	case graph.OpMul:
		return OpcodeMul, true
	case graph.OpDiv:
		return OpcodeDiv, true
	case graph.OpNeg:
		return OpcodeNeg, true
	case graph.OpPrev:
		return OpcodePrev, true
	}
	return OpcodeNop, false
}
