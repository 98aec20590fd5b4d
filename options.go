package prism

import (
	"log/slog"

	"github.com/roach88/prism/internal/solver"
)

// SolverBackend drives the constraint system to convergence. The
// default is the in-tree damped Gauss-Newton backend.
type SolverBackend = solver.Backend

// Option configures a Model at construction.
type Option func(*Model)

// WithModelLen sets the time-axis width shared by every series in the
// model. The default is 1 (a pure scalar model).
func WithModelLen(n int) Option {
	return func(m *Model) {
		if n >= 1 {
			m.modelLen = n
		}
	}
}

// WithLogger routes engine and solver events to l. The default logger
// discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSolverBackend replaces the default Gauss-Newton backend.
func WithSolverBackend(b SolverBackend) Option {
	return func(m *Model) {
		if b != nil {
			m.backend = b
		}
	}
}

// WithRequireDeclarations makes validation flag every source node
// (constant or solver variable) that carries neither a declared kind
// nor a declared unit.
func WithRequireDeclarations() Option {
	return func(m *Model) { m.valOpts.RequireDeclarations = true }
}
