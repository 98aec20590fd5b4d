// Package ledger owns the SoA value heap: one f64 row per node,
// modelLen columns, in a single contiguous allocation. Row i occupies
// [i*modelLen, (i+1)*modelLen); scalars are rows of width 1 whose
// remaining columns do not exist.
//
// Rows never alias each other, so an instruction's target slice can
// only overlap an input slice when target == input. Kernels are written
// read-before-write within a lane to keep that case well defined.
package ledger

import (
	"fmt"

	"github.com/roach88/prism/internal/graph"
)

// Ledger is the dense value heap plus the solver convergence trace.
type Ledger struct {
	data     []float64
	rows     int
	modelLen int

	trace []SolverIteration
}

// SolverIteration is one convergence record captured during a solve.
// Surfaced as data, not log output, so the audit layer can render it.
type SolverIteration struct {
	Iter   int
	ObjVal float64
	InfPr  float64 // primal infeasibility: ‖residual‖∞
	InfDu  float64 // dual infeasibility / step norm, backend-dependent
}

// New creates a ledger of rows × modelLen zeros. modelLen is the time
// axis; scalars use modelLen == 1.
func New(rows, modelLen int) *Ledger {
	if modelLen < 1 {
		modelLen = 1
	}
	return &Ledger{
		data:     make([]float64, rows*modelLen),
		rows:     rows,
		modelLen: modelLen,
	}
}

// ModelLen returns the time-axis width of every row.
func (l *Ledger) ModelLen() int { return l.modelLen }

// Rows returns the current row count.
func (l *Ledger) Rows() int { return l.rows }

// Resize grows the ledger to the given shape, preserving existing row
// contents. Shrinking is not supported: the registry only grows.
func (l *Ledger) Resize(rows, modelLen int) {
	if modelLen < 1 {
		modelLen = 1
	}
	if rows < l.rows {
		rows = l.rows
	}
	if modelLen == l.modelLen {
		if rows > l.rows {
			grown := make([]float64, rows*modelLen)
			copy(grown, l.data)
			l.data = grown
			l.rows = rows
		}
		return
	}
	// Column count changed: copy row by row into the new stride.
	grown := make([]float64, rows*modelLen)
	width := min(modelLen, l.modelLen)
	for i := 0; i < l.rows; i++ {
		copy(grown[i*modelLen:i*modelLen+width], l.data[i*l.modelLen:i*l.modelLen+width])
	}
	l.data = grown
	l.rows = rows
	l.modelLen = modelLen
}

// Row returns the value slice for a node. The slice aliases ledger
// storage.
func (l *Ledger) Row(id graph.NodeID) []float64 {
	base := id.Index() * l.modelLen
	return l.data[base : base+l.modelLen : base+l.modelLen]
}

// ScalarAt returns the first column of a node's row.
func (l *Ledger) ScalarAt(id graph.NodeID) float64 {
	return l.data[id.Index()*l.modelLen]
}

// WriteConst bulk-writes a constant payload into a node's row. A
// single-element payload broadcasts across the row; a payload of
// exactly modelLen fills it. Anything else is a shape error.
func (l *Ledger) WriteConst(id graph.NodeID, values []float64) error {
	row := l.Row(id)
	switch len(values) {
	case 1:
		for i := range row {
			row[i] = values[0]
		}
	case l.modelLen:
		copy(row, values)
	default:
		return &DimensionError{Expected: l.modelLen, Got: len(values)}
	}
	return nil
}

// CopyFrom copies every row of src into l. Shapes must match.
func (l *Ledger) CopyFrom(src *Ledger) error {
	if src.rows != l.rows || src.modelLen != l.modelLen {
		return &DimensionError{Expected: l.rows * l.modelLen, Got: src.rows * src.modelLen}
	}
	copy(l.data, src.data)
	return nil
}

// Clone returns an independent copy of the value heap. The trace is not
// cloned; solver scratch ledgers keep their own.
func (l *Ledger) Clone() *Ledger {
	out := New(l.rows, l.modelLen)
	copy(out.data, l.data)
	return out
}

// DimensionError reports a payload whose length fits neither a scalar
// broadcast nor the model length.
type DimensionError struct {
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected length %d (or 1), got %d", e.Expected, e.Got)
}

// ClearTrace resets the solver trace at the start of a solve.
func (l *Ledger) ClearTrace() { l.trace = l.trace[:0] }

// AppendTrace records one solver iteration.
func (l *Ledger) AppendTrace(rec SolverIteration) {
	l.trace = append(l.trace, rec)
}

// Trace returns the convergence history of the last solve. The slice
// aliases ledger storage.
func (l *Ledger) Trace() []SolverIteration { return l.trace }
