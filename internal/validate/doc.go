// Package validate performs static analysis of the computation graph:
// temporal-kind inference and dimensional (unit) analysis.
//
// Validation runs two passes over the topological order, each O(V+E):
//
//  1. Inference: compute (kind, unit) bottom-up from the algebra tables,
//     caching the result per node so consumers read from the cache.
//  2. Verification: compare canonicalized inferred metadata against user
//     declarations, collecting every mismatch without stopping.
//
// Declarations are assertions, never hints that override inference. The
// one exception: when inference yields Unknown, a declaration seeds the
// node's metadata, since a graph of bare constants would otherwise never
// acquire a kind or unit at all.
//
// Validation is pure with respect to the ledger: it never reads or
// writes values.
package validate
