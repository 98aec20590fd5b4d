// Package audit persists solve sessions for later inspection: the
// final value table plus the per-iteration convergence trace, keyed by
// a generated session id.
//
// Storage is SQLite in WAL mode with a single writer connection, which
// is enough for the one-process, one-session-at-a-time access pattern.
// The rendering helpers turn a stored session back into the fixed-width
// tables the CLI prints.
package audit
