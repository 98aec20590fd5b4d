package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modelLens exercises the scalar fast path (1), sub-lane lengths, exact
// lane multiples, and tails.
var modelLens = []int{1, 3, 4, 5, 7, 16, 17}

func ramp(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

// scalarRef applies op element-wise; the reference the lane kernels must
// match bit for bit.
func scalarRef(op func(x, y float64) float64, a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range out {
		out[i] = op(a[i], b[i])
	}
	return out
}

func TestLaneKernelsMatchScalarReference(t *testing.T) {
	cases := []struct {
		name   string
		kernel func(dst, a, b []float64)
		ref    func(x, y float64) float64
	}{
		{"add", Add, func(x, y float64) float64 { return x + y }},
		{"sub", Sub, func(x, y float64) float64 { return x - y }},
		{"mul", Mul, func(x, y float64) float64 { return x * y }},
		{"div", Div, func(x, y float64) float64 { return x / y }},
	}
	for _, tc := range cases {
		for _, n := range modelLens {
			a := ramp(n, 1.5)
			b := ramp(n, -2.25)
			want := scalarRef(tc.ref, a, b)
			dst := make([]float64, n)
			tc.kernel(dst, a, b)
			assert.Equal(t, want, dst, "%s n=%d", tc.name, n)
		}
	}
}

func TestNegMatchesScalarReference(t *testing.T) {
	for _, n := range modelLens {
		a := ramp(n, -3)
		dst := make([]float64, n)
		Neg(dst, a)
		for i := range a {
			assert.Equal(t, -a[i], dst[i])
		}
	}
}

func TestDiv_IEEENonFinite(t *testing.T) {
	a := []float64{1, -1, 0, 5}
	b := []float64{0, 0, 0, math.NaN()}
	dst := make([]float64, 4)
	Div(dst, a, b)

	assert.True(t, math.IsInf(dst[0], 1))
	assert.True(t, math.IsInf(dst[1], -1))
	assert.True(t, math.IsNaN(dst[2]), "0/0 is NaN")
	assert.True(t, math.IsNaN(dst[3]))
}

func TestKernels_NaNEqualOnNonFinite(t *testing.T) {
	for _, n := range modelLens {
		a := ramp(n, 1)
		b := ramp(n, 2)
		if n > 2 {
			a[1] = math.NaN()
			b[2] = math.Inf(1)
		} else {
			a[0] = math.NaN()
		}
		want := scalarRef(func(x, y float64) float64 { return x + y }, a, b)
		dst := make([]float64, n)
		Add(dst, a, b)
		for i := range want {
			if math.IsNaN(want[i]) {
				assert.True(t, math.IsNaN(dst[i]), "n=%d i=%d", n, i)
			} else {
				assert.Equal(t, want[i], dst[i], "n=%d i=%d", n, i)
			}
		}
	}
}

func TestInPlaceAliasing(t *testing.T) {
	// dst == a: every kernel reads a lane before writing it.
	a := ramp(8, 1)
	b := ramp(8, 10)
	want := scalarRef(func(x, y float64) float64 { return x + y }, a, b)
	Add(a, a, b)
	assert.Equal(t, want, a)

	// dst == both inputs: x*x in place.
	c := ramp(8, 2)
	wantSq := scalarRef(func(x, y float64) float64 { return x * y }, c, c)
	Mul(c, c, c)
	assert.Equal(t, wantSq, c)
}

func TestPrev_ZerosBelowLagShiftAbove(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	dst := make([]float64, 4)
	Prev(dst, x, 1)
	assert.Equal(t, []float64{0, 1, 2, 3}, dst)

	Prev(dst, x, 3)
	assert.Equal(t, []float64{0, 0, 0, 1}, dst)
}

func TestPrev_LagBeyondLengthZeroFills(t *testing.T) {
	x := []float64{1, 2}
	dst := []float64{9, 9}
	Prev(dst, x, 5)
	assert.Equal(t, []float64{0, 0}, dst)
}

func TestPrev_AliasedShiftsRightToLeft(t *testing.T) {
	for _, n := range modelLens {
		for _, k := range []int{1, 2, 3} {
			src := ramp(n, 1)
			want := make([]float64, n)
			Prev(want, src, k)

			aliased := ramp(n, 1)
			Prev(aliased, aliased, k)
			require.Equal(t, want, aliased, "n=%d k=%d", n, k)
		}
	}
}
