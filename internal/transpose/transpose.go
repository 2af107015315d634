// Package transpose implements CODA's array transpose (spec §4.12):
// converting a C-ordered array into Fortran order (or vice versa).
// Partial-array reads are done by coda.Cursor (ReadDoublePartialArray
// and friends), not here.
package transpose

// stride returns the C-order (row-major) strides for dims.
func stride(dims []int64) []int64 {
	s := make([]int64, len(dims))
	acc := int64(1)
	for i := len(dims) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= dims[i]
	}
	return s
}

// fortranIndex converts a C-order flat index into the Fortran-order
// flat index for the same logical element (spec §4.12: "the loop
// walks a reversed-index tuple and writes the target element into its
// destination index computed from the multiplier stride vector").
func fortranIndex(cFlat int64, dims []int64) int64 {
	cStride := stride(dims)
	subs := make([]int64, len(dims))
	rem := cFlat
	for i, s := range cStride {
		subs[i] = rem / s
		rem %= s
	}
	var fFlat int64
	fAcc := int64(1)
	for i := 0; i < len(dims); i++ {
		fFlat += subs[i] * fAcc
		fAcc *= dims[i]
	}
	return fFlat
}

// Float64 returns a new slice holding src (given in C order over
// dims) reordered into Fortran order. Applying it again to the result
// with dims reversed restores src (the involution property spec §8
// calls for).
func Float64(src []float64, dims []int64) []float64 {
	out := make([]float64, len(src))
	for i := range src {
		out[fortranIndex(int64(i), dims)] = src[i]
	}
	return out
}

// Int64 is Float64's integer counterpart.
func Int64(src []int64, dims []int64) []int64 {
	out := make([]int64, len(src))
	for i := range src {
		out[fortranIndex(int64(i), dims)] = src[i]
	}
	return out
}

// Bytes transposes a raw element buffer whose elements are elemSize
// bytes each (elemSize in {1,2,4,8}), the general form spec §4.12
// describes for the bit-level cursor readers.
func Bytes(src []byte, dims []int64, elemSize int) []byte {
	n := len(src) / elemSize
	out := make([]byte, len(src))
	for i := 0; i < n; i++ {
		j := fortranIndex(int64(i), dims)
		copy(out[j*int64(elemSize):(j+1)*int64(elemSize)], src[int64(i)*int64(elemSize):(int64(i)+1)*int64(elemSize)])
	}
	return out
}
