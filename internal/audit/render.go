package audit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/prism/internal/ledger"
)

// RenderValues formats a value table, one node per line. Scalars print
// bare; series print bracketed.
func RenderValues(values []NodeValue) string {
	width := len("node")
	for _, v := range values {
		if len(v.Name) > width {
			width = len(v.Name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  value\n", width, "node")
	for _, v := range values {
		fmt.Fprintf(&b, "%-*s  %s\n", width, v.Name, formatValue(v))
	}
	return b.String()
}

func formatValue(v NodeValue) string {
	if v.Scalar {
		return formatFloat(v.Data[0])
	}
	parts := make([]string, len(v.Data))
	for i, x := range v.Data {
		parts[i] = formatFloat(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// RenderTrace formats the convergence history in the solver log style:
// iteration, objective, primal infeasibility, dual infeasibility.
func RenderTrace(trace []ledger.SolverIteration) string {
	var b strings.Builder
	b.WriteString("iter     objective        inf_pr        inf_du\n")
	for _, rec := range trace {
		fmt.Fprintf(&b, "%4d  %12.6e  %12.6e  %12.6e\n", rec.Iter, rec.ObjVal, rec.InfPr, rec.InfDu)
	}
	return b.String()
}

// RenderSummaries formats the session listing.
func RenderSummaries(sums []Summary) string {
	var b strings.Builder
	b.WriteString("id                                    converged  iters  label\n")
	for _, s := range sums {
		status := "no"
		if s.Converged {
			status = "yes"
		}
		fmt.Fprintf(&b, "%-36s  %-9s  %5d  %s\n", s.ID, status, s.Iterations, s.Label)
	}
	return b.String()
}
