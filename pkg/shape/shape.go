// Package shape implements the small fixed-dimension integer vectors used
// to describe tensor dims and strides, grounded in the teacher's
// pkg/tensor.Tensor.Shape/Strides convention (a plain []int pair) and in
// original_source's Shape/IndexArray split.
package shape

// IndexArray is a dense sequence of non-negative integers: a shape (one
// entry per dimension) or a stride (steps per dimension), or a concrete
// multi-index into a tensor. The source encodes these as three distinct
// fixed-capacity types; a single named slice type is the idiomatic Go
// rendition since append/copy already give us value semantics on slice.
type IndexArray []int

// Clone returns an independent copy.
func (a IndexArray) Clone() IndexArray {
	out := make(IndexArray, len(a))
	copy(out, a)
	return out
}

// Equal reports whether two IndexArrays have the same length and elements.
func (a IndexArray) Equal(b IndexArray) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NDim is the dimension count.
func (a IndexArray) NDim() int { return len(a) }

// Size is an alias for IndexArray used when the array represents a shape.
type Size = IndexArray

// TotalSize is the product of all dims (the element count described by this shape).
func TotalSize(s Size) int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// SubsizeFrom is the product of dims[k:], i.e. the number of elements in one
// "row" once the first k dimensions are fixed. SubsizeFrom(len(s)) == 1.
func SubsizeFrom(s Size, k int) int {
	n := 1
	for i := k; i < len(s); i++ {
		n *= s[i]
	}
	return n
}

// ContiguousStride computes the standard row-major stride for shape s, with
// stride 0 on any dimension whose size is 1 — the broadcast-friendly
// convention spec.md §3 requires uniformly, not just for views.
func ContiguousStride(s Size) IndexArray {
	st := make(IndexArray, len(s))
	for i := range s {
		if s[i] == 1 {
			st[i] = 0
		} else {
			st[i] = SubsizeFrom(s, i+1)
		}
	}
	return st
}

// IsContiguous reports whether stride matches ContiguousStride(shape) up to
// the size-1-dim-is-zero convention: for every i, stride[i] is 0 or equals
// SubsizeFrom(shape, i+1).
func IsContiguous(s Size, stride IndexArray) bool {
	for i := range s {
		if stride[i] != 0 && stride[i] != SubsizeFrom(s, i+1) {
			return false
		}
	}
	return true
}

// Offset computes sum(index[i] * stride[i]) — the element address relative
// to a tensor's storage offset.
func Offset(index IndexArray, stride IndexArray) int {
	off := 0
	for i := range index {
		off += index[i] * stride[i]
	}
	return off
}
