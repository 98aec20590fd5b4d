// Package graph holds the append-only computation graph registry.
//
// Nodes live in columnar arrays addressed by dense NodeID. Parent
// references are ids, never pointers, so the downstream ledger can share
// the same indexing scheme and no cyclic-ownership bookkeeping exists.
//
// STRUCTURAL INVARIANTS:
//   - NodeIDs are assigned in insertion order and never reused.
//   - Every parent id is strictly smaller than its child's id.
//   - The registry only grows; constants may be repointed to new payloads
//     but nodes are never removed.
//
// The revision counter increments on every structural change (add node,
// add constraint, declare metadata). It is the compilation cache key.
// Constant payload updates bump a separate data generation and leave the
// revision untouched, so a cached program survives input sweeps.
package graph
