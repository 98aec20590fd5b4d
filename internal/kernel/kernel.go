// Package kernel provides the per-opcode numerical primitives the
// engine dispatches to. Each kernel operates on whole ledger rows:
// fn(dst, a, b) over modelLen elements.
//
// The lane-wise ops process chunks of four f64 with a scalar tail, the
// widest unit the compiler reliably vectorizes on both amd64 (AVX2) and
// arm64 (NEON pairs) without assembly. modelLen == 1 takes a scalar
// fast path and returns immediately.
//
// Kernels are side-effect-free with respect to anything outside their
// slice arguments. dst may alias a or b (same row); every kernel reads
// a lane before writing it, so in-place execution is well defined.
// Division follows IEEE 754: /0 yields ±Inf or NaN, never a trap.
package kernel

// LaneWidth is the f64 chunk size of the lane-wise loops.
const LaneWidth = 4

// Add computes dst[i] = a[i] + b[i].
func Add(dst, a, b []float64) {
	if len(dst) == 1 {
		dst[0] = a[0] + b[0]
		return
	}
	i := 0
	for ; i+LaneWidth <= len(dst); i += LaneWidth {
		d, x, y := dst[i:i+LaneWidth], a[i:i+LaneWidth], b[i:i+LaneWidth]
		d[0] = x[0] + y[0]
		d[1] = x[1] + y[1]
		d[2] = x[2] + y[2]
		d[3] = x[3] + y[3]
	}
	for ; i < len(dst); i++ {
		dst[i] = a[i] + b[i]
	}
}

// Sub computes dst[i] = a[i] - b[i].
func Sub(dst, a, b []float64) {
	if len(dst) == 1 {
		dst[0] = a[0] - b[0]
		return
	}
	i := 0
	for ; i+LaneWidth <= len(dst); i += LaneWidth {
		d, x, y := dst[i:i+LaneWidth], a[i:i+LaneWidth], b[i:i+LaneWidth]
		d[0] = x[0] - y[0]
		d[1] = x[1] - y[1]
		d[2] = x[2] - y[2]
		d[3] = x[3] - y[3]
	}
	for ; i < len(dst); i++ {
		dst[i] = a[i] - b[i]
	}
}

// Mul computes dst[i] = a[i] * b[i].
func Mul(dst, a, b []float64) {
	if len(dst) == 1 {
		dst[0] = a[0] * b[0]
		return
	}
	i := 0
	for ; i+LaneWidth <= len(dst); i += LaneWidth {
		d, x, y := dst[i:i+LaneWidth], a[i:i+LaneWidth], b[i:i+LaneWidth]
		d[0] = x[0] * y[0]
		d[1] = x[1] * y[1]
		d[2] = x[2] * y[2]
		d[3] = x[3] * y[3]
	}
	for ; i < len(dst); i++ {
		dst[i] = a[i] * b[i]
	}
}

// Div computes dst[i] = a[i] / b[i] with IEEE semantics.
func Div(dst, a, b []float64) {
	if len(dst) == 1 {
		dst[0] = a[0] / b[0]
		return
	}
	i := 0
	for ; i+LaneWidth <= len(dst); i += LaneWidth {
		d, x, y := dst[i:i+LaneWidth], a[i:i+LaneWidth], b[i:i+LaneWidth]
		d[0] = x[0] / y[0]
		d[1] = x[1] / y[1]
		d[2] = x[2] / y[2]
		d[3] = x[3] / y[3]
	}
	for ; i < len(dst); i++ {
		dst[i] = a[i] / b[i]
	}
}

// Neg computes dst[i] = -a[i].
func Neg(dst, a []float64) {
	if len(dst) == 1 {
		dst[0] = -a[0]
		return
	}
	i := 0
	for ; i+LaneWidth <= len(dst); i += LaneWidth {
		d, x := dst[i:i+LaneWidth], a[i:i+LaneWidth]
		d[0] = -x[0]
		d[1] = -x[1]
		d[2] = -x[2]
		d[3] = -x[3]
	}
	for ; i < len(dst); i++ {
		dst[i] = -a[i]
	}
}

// Prev computes the temporal lookback dst[t] = a[t-k] for t >= k and
// dst[t] = 0 for t < k. When dst and a share a row the copy runs
// right to left so no source element is clobbered before it is read.
func Prev(dst, a []float64, k int) {
	n := len(dst)
	if k > n {
		k = n
	}
	if sameRow(dst, a) {
		for t := n - 1; t >= k; t-- {
			dst[t] = a[t-k]
		}
	} else {
		copy(dst[k:], a[:n-k])
	}
	for t := 0; t < k; t++ {
		dst[t] = 0
	}
}

// sameRow reports whether two row slices share backing storage. Rows
// never partially overlap, so comparing the heads suffices.
func sameRow(a, b []float64) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}
