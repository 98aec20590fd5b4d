package prism

// Value is a computed node value, scalar or series. The shape is
// decided by the structural-scalar table computed at compile time, not
// by inspecting the numbers: a series that happens to hold equal
// entries is still a series.
type Value struct {
	scalar bool
	data   []float64
}

// IsScalar reports whether the node is structurally scalar.
func (v Value) IsScalar() bool { return v.scalar }

// Scalar returns the scalar value. For series nodes it returns the
// first step; callers that care should check IsScalar first.
func (v Value) Scalar() float64 { return v.data[0] }

// Series returns the full row over the time axis. The slice is the
// caller's to keep; it does not alias engine storage.
func (v Value) Series() []float64 { return v.data }

// Len returns the series length (1 for scalars in a scalar model).
func (v Value) Len() int {
	if v.scalar {
		return 1
	}
	return len(v.data)
}
