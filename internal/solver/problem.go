package solver

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/prism/internal/ledger"
)

// Problem is the NLP callback surface, shaped after the external
// solver's C interface. Implementations must be deterministic: the same
// x always yields the same outputs.
type Problem interface {
	// NumVars is n, the flattened decision-vector length.
	NumVars() int
	// NumResiduals is m, the flattened constraint count.
	NumResiduals() int
	// InitialGuess returns the starting point (length n).
	InitialGuess() []float64

	// EvalF computes the objective. Pure feasibility problems return 0;
	// backends minimize residuals directly.
	EvalF(x []float64) (float64, error)
	// EvalGradF writes the objective gradient into grad (length n).
	EvalGradF(x, grad []float64) error
	// EvalG writes the residual vector into g (length m).
	EvalG(x, g []float64) error
	// EvalJacG writes the dense row-major m×n Jacobian into jac.
	EvalJacG(x, jac []float64) error
}

// Hessian is optionally implemented by problems with an exact Hessian.
// Backends fall back to quasi-Newton approximations when absent.
type Hessian interface {
	EvalH(x []float64, sigma float64, lambda, h []float64) error
}

// Options tunes a solve.
type Options struct {
	// Tol is the convergence tolerance on ‖residual‖∞. Default 1e-8.
	Tol float64
	// MaxIter caps outer iterations. Default 100.
	MaxIter int
	// Budget is an optional wall-clock limit; zero means none.
	Budget time.Duration
	// Logger receives debug-level iteration events; nil discards them.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Tol <= 0 {
		o.Tol = 1e-8
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 100
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Backend drives a Problem to convergence. observe is called once per
// outer iteration with the convergence record.
type Backend interface {
	Name() string
	Solve(p Problem, opts Options, observe func(ledger.SolverIteration)) ([]float64, error)
}

// Failure reasons.
const (
	ReasonMaxIter  = "max_iterations"
	ReasonTimeout  = "timeout"
	ReasonSingular = "singular_jacobian"
	ReasonCallback = "callback_error"
)

// Failure reports an unconverged solve, carrying the solver's status
// and the convergence history for audit.
type Failure struct {
	Reason  string
	Detail  string
	History []ledger.SolverIteration
}

func (e *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "solve failed: %s", e.Reason)
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	if n := len(e.History); n > 0 {
		last := e.History[n-1]
		fmt.Fprintf(&b, "; after %d iteration(s), ‖r‖∞=%.3e", n, last.InfPr)
	}
	return b.String()
}

// fdStep is the finite-difference step for coordinate value x:
// max(1e-8, 1e-6*|x|).
func fdStep(x float64) float64 {
	eps := 1e-6 * abs(x)
	if eps < 1e-8 {
		eps = 1e-8
	}
	return eps
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
