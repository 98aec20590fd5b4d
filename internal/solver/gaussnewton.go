package solver

import (
	"math"
	"time"

	"github.com/roach88/prism/internal/ledger"
)

// GaussNewton is the in-tree reference backend: damped Gauss-Newton on
// the residual callbacks. Each iteration solves the normal equations
// (JᵀJ + λI)·dx = −Jᵀr and takes the full step; λ starts at zero and
// grows only when the system is numerically singular.
type GaussNewton struct{}

// Name implements Backend.
func (GaussNewton) Name() string { return "gauss-newton" }

// Solve implements Backend.
func (GaussNewton) Solve(p Problem, opts Options, observe func(ledger.SolverIteration)) ([]float64, error) {
	opts = opts.withDefaults()
	start := time.Now()

	n := p.NumVars()
	m := p.NumResiduals()
	x := make([]float64, n)
	copy(x, p.InitialGuess())

	r := make([]float64, m)
	jac := make([]float64, m*n)
	stepNorm := 0.0

	var history []ledger.SolverIteration
	fail := func(reason, detail string) error {
		return &Failure{Reason: reason, Detail: detail, History: history}
	}
	record := func(iter int) ledger.SolverIteration {
		rec := ledger.SolverIteration{
			Iter:   iter,
			ObjVal: 0.5 * dot(r, r),
			InfPr:  infNorm(r),
			InfDu:  stepNorm,
		}
		history = append(history, rec)
		if observe != nil {
			observe(rec)
		}
		return rec
	}

	for iter := 0; iter < opts.MaxIter; iter++ {
		if err := p.EvalG(x, r); err != nil {
			return nil, fail(ReasonCallback, err.Error())
		}
		rec := record(iter)
		opts.Logger.Debug("solver iteration",
			"backend", "gauss-newton", "iter", iter, "inf_pr", rec.InfPr, "obj", rec.ObjVal)

		if rec.InfPr <= opts.Tol {
			return x, nil
		}
		if opts.Budget > 0 && time.Since(start) > opts.Budget {
			return nil, fail(ReasonTimeout, opts.Budget.String())
		}

		if err := p.EvalJacG(x, jac); err != nil {
			return nil, fail(ReasonCallback, err.Error())
		}

		dx, ok := normalStep(jac, r, m, n)
		if !ok {
			return nil, fail(ReasonSingular, "JᵀJ not invertible")
		}
		stepNorm = infNorm(dx)
		for j := 0; j < n; j++ {
			x[j] += dx[j]
		}
	}
	return nil, fail(ReasonMaxIter, "")
}

// normalStep solves (JᵀJ + λI)·dx = −Jᵀr, escalating λ through a few
// damping levels before giving up.
func normalStep(jac, r []float64, m, n int) ([]float64, bool) {
	jtj := make([]float64, n*n)
	for i := 0; i < m; i++ {
		row := jac[i*n : (i+1)*n]
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				jtj[a*n+b] += row[a] * row[b]
			}
		}
	}
	jtr := make([]float64, n)
	for i := 0; i < m; i++ {
		for a := 0; a < n; a++ {
			jtr[a] -= jac[i*n+a] * r[i]
		}
	}

	for _, lambda := range []float64{0, 1e-12, 1e-8, 1e-4} {
		sys := make([]float64, n*n)
		copy(sys, jtj)
		for a := 0; a < n; a++ {
			sys[a*n+a] += lambda
		}
		rhs := make([]float64, n)
		copy(rhs, jtr)
		if dx, ok := solveDense(sys, rhs, n); ok {
			return dx, true
		}
	}
	return nil, false
}

// solveDense is Gaussian elimination with partial pivoting on an n×n
// row-major system. Solver systems are tiny (one row per decision
// coordinate), so O(n³) is fine.
func solveDense(a, b []float64, n int) ([]float64, bool) {
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row*n+col]) > math.Abs(a[pivot*n+col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot*n+col]) < 1e-300 {
			return nil, false
		}
		if pivot != col {
			for k := 0; k < n; k++ {
				a[col*n+k], a[pivot*n+k] = a[pivot*n+k], a[col*n+k]
			}
			b[col], b[pivot] = b[pivot], b[col]
		}
		inv := 1 / a[col*n+col]
		for row := col + 1; row < n; row++ {
			f := a[row*n+col] * inv
			if f == 0 {
				continue
			}
			for k := col; k < n; k++ {
				a[row*n+k] -= f * a[col*n+k]
			}
			b[row] -= f * b[col]
		}
	}
	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row*n+k] * x[k]
		}
		x[row] = sum / a[row*n+row]
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
	}
	return x, true
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func infNorm(v []float64) float64 {
	max := 0.0
	for _, x := range v {
		if math.Abs(x) > max {
			max = math.Abs(x)
		}
	}
	return max
}
