// Package solver bridges the constraint subsystem to a nonlinear
// programming solver.
//
// The bridge translates solver variables and equality constraints into
// the standard NLP callback surface (objective, residuals, gradient,
// Jacobian) consumed by external solver libraries: the Problem interface
// mirrors the IPOPT C API callback set, so a cgo adapter can hand these
// callbacks straight to Ipopt_Solve. Residual evaluation closes over the
// engine: each trial point is written into the solver-variable rows of a
// scratch ledger and the affected downstream subgraph is re-executed.
//
// The in-tree reference backend is a damped Gauss-Newton iteration over
// the same callbacks, with the Jacobian by forward finite differences at
// step max(1e-8, 1e-6*|x|). It exits successfully when the residual
// infinity norm falls under tolerance, and reports max-iteration,
// timeout, and singular-system failures with the full convergence
// history attached for audit.
package solver
