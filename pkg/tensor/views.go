package tensor

import (
	"github.com/Hirogava/tensorgrad/pkg/checks"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/storage"
)

// view builds a new Tensor sharing t's storage (at an adjusted offset)
// with the given shape/stride — the common constructor behind every
// non-copying view operation in this file. Per spec.md §4.1: when t
// requires grad, the derived tensor also requires grad, its grad storage
// aliases t's grad storage at the same delta, from_view is set, and its
// grad_fn is a direct handle to t.
func (t *Tensor) view(newShape shape.Size, newStride shape.IndexArray, delta int) *Tensor {
	out := &Tensor{
		store:  storage.ShareWithOffset(t.store, delta),
		shp:    newShape,
		stride: newStride,
		id:     t.id,
	}
	if t.requiresGrad {
		out.requiresGrad = true
		out.grad = &gradMeta{
			grad:       storage.ShareWithOffset(t.grad.grad, delta),
			fromView:   true,
			viewSource: t,
		}
	}
	return out
}

// Slice drops dimension dim, fixing it at index: the offset shifts by
// stride[dim] * index.
func (t *Tensor) Slice(dim, index int) (*Tensor, error) {
	if dim < 0 || dim >= t.NDim() {
		return nil, checks.DimOutOfRange("dim %d out of range [0,%d)", dim, t.NDim())
	}
	if index < 0 || index >= t.shp[dim] {
		return nil, checks.IndexOutOfRange("index %d out of range [0,%d) for dim %d", index, t.shp[dim], dim)
	}
	delta := t.stride[dim] * index
	newShape := removeAt(t.shp, dim)
	newStride := removeAt(t.stride, dim)
	return t.view(newShape, newStride, delta), nil
}

// SliceRange keeps dimension dim but narrows it to [start, end): size
// becomes end-start and the offset shifts by stride[dim] * start.
func (t *Tensor) SliceRange(dim, start, end int) (*Tensor, error) {
	if dim < 0 || dim >= t.NDim() {
		return nil, checks.DimOutOfRange("dim %d out of range [0,%d)", dim, t.NDim())
	}
	if start < 0 || end > t.shp[dim] || start >= end {
		return nil, checks.IndexOutOfRange("slice range [%d,%d) invalid for dim %d of size %d", start, end, dim, t.shp[dim])
	}
	delta := t.stride[dim] * start
	newShape := t.shp.Clone()
	newShape[dim] = end - start
	return t.view(newShape, t.stride.Clone(), delta), nil
}

// Transpose swaps shape[i]<->shape[j] and stride[i]<->stride[j].
func (t *Tensor) Transpose(i, j int) (*Tensor, error) {
	if i < 0 || i >= t.NDim() || j < 0 || j >= t.NDim() {
		return nil, checks.DimOutOfRange("transpose dims (%d,%d) out of range [0,%d)", i, j, t.NDim())
	}
	newShape := t.shp.Clone()
	newStride := t.stride.Clone()
	newShape[i], newShape[j] = newShape[j], newShape[i]
	newStride[i], newStride[j] = newStride[j], newStride[i]
	return t.view(newShape, newStride, 0), nil
}

// Permute reorders shape and stride by perm, a permutation of [0, ndim).
func (t *Tensor) Permute(perm []int) (*Tensor, error) {
	if len(perm) != t.NDim() {
		return nil, checks.ShapeMismatch("permute needs %d indices, got %d", t.NDim(), len(perm))
	}
	newShape := make(shape.Size, t.NDim())
	newStride := make(shape.IndexArray, t.NDim())
	for i, p := range perm {
		if p < 0 || p >= t.NDim() {
			return nil, checks.DimOutOfRange("permute index %d out of range [0,%d)", p, t.NDim())
		}
		newShape[i] = t.shp[p]
		newStride[i] = t.stride[p]
	}
	return t.view(newShape, newStride, 0), nil
}

// View reshapes t without copying data. Requires t to be contiguous; the
// new stride is recomputed row-major with 0 where size is 1; total element
// count must be preserved.
func (t *Tensor) View(newShape shape.Size) (*Tensor, error) {
	if !t.IsContiguous() {
		return nil, checks.NonContiguous("view requires a contiguous tensor, stride %v shape %v is not", t.stride, t.shp)
	}
	if shape.TotalSize(newShape) != t.Numel() {
		return nil, checks.ElementCount("view shape %v (size %d) does not match tensor size %d", newShape, shape.TotalSize(newShape), t.Numel())
	}
	newStride := shape.ContiguousStride(newShape)
	return t.view(newShape.Clone(), newStride, 0), nil
}

// Squeeze removes dimension dim (which must have size 1), implemented via
// View as spec.md §4.1 specifies.
func (t *Tensor) Squeeze(dim int) (*Tensor, error) {
	if dim < 0 || dim >= t.NDim() {
		return nil, checks.DimOutOfRange("dim %d out of range [0,%d)", dim, t.NDim())
	}
	if t.shp[dim] != 1 {
		return nil, checks.ShapeMismatch("squeeze(%d) requires size 1, got %d", dim, t.shp[dim])
	}
	return t.View(removeAt(t.shp, dim))
}

// Unsqueeze inserts a size-1 dimension at dim, implemented via View.
func (t *Tensor) Unsqueeze(dim int) (*Tensor, error) {
	if dim < 0 || dim > t.NDim() {
		return nil, checks.DimOutOfRange("dim %d out of range [0,%d]", dim, t.NDim())
	}
	return t.View(insertAt(t.shp, dim, 1))
}

func removeAt(s shape.IndexArray, i int) shape.IndexArray {
	out := make(shape.IndexArray, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out
}

func insertAt(s shape.IndexArray, i int, v int) shape.IndexArray {
	out := make(shape.IndexArray, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	out = append(out, s[i:]...)
	return out
}
