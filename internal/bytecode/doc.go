// Package bytecode lowers an ordered node list into the flat instruction
// tape executed by the engine.
//
// Every node owns the ledger row equal to its NodeID, in full and
// partial builds alike, so the ledger layout never shifts between
// compilations. Constants emit no instructions: their rows are written
// at registration time and on constant updates. Solver variables and
// constraints emit nothing either; they are collected as metadata for
// the solver bridge.
//
// The wire format is a 16-byte little-endian record per instruction:
// op:u16, pad:u16, target:u32, p1:u32, p2:u32. Opcode numbering is part
// of the format. Programs are not persisted across versions.
package bytecode
