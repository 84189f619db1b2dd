// Package tensor implements the core Tensor type: a Storage, a Shape, a
// stride, and optional autograd metadata, plus the view operations and
// assignment machinery that materialize a pkg/expr.Expression into it.
// Grounded in the teacher's pkg/tensor.Tensor (Data/Shape/Strides triple)
// and original_source's tensor/tensor_impl.hpp (Storage+Shape+IndexArray
// plus an AutoGradMeta pointer, present only when requires_grad).
package tensor

import (
	"github.com/google/uuid"

	"github.com/Hirogava/tensorgrad/pkg/checks"
	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/storage"
)

// Tensor is a multidimensional numeric array: Storage + Shape + stride,
// plus a GradMeta when requiresGrad is set.
type Tensor struct {
	store  storage.Storage
	shp    shape.Size
	stride shape.IndexArray

	requiresGrad bool
	grad         *gradMeta
	gradCount    int64 // atomic pending-consumer counter, see DecGradCount/IncGradCount

	id uuid.UUID
}

// New allocates a zero-filled leaf tensor of the given shape.
func New(shp shape.Size, requiresGrad bool) *Tensor {
	n := shape.TotalSize(shp)
	t := &Tensor{
		store:  storage.Allocate(n),
		shp:    shp.Clone(),
		stride: shape.ContiguousStride(shp),
		id:     uuid.New(),
	}
	t.setRequiresGrad(requiresGrad)
	return t
}

// FromData wraps raw (copied) into a leaf tensor of the given shape.
func FromData(raw []float64, shp shape.Size, requiresGrad bool) (*Tensor, error) {
	if len(raw) != shape.TotalSize(shp) {
		return nil, checks.ElementCount("data has %d elements, shape %v wants %d", len(raw), shp, shape.TotalSize(shp))
	}
	t := &Tensor{
		store:  storage.Wrap(raw),
		shp:    shp.Clone(),
		stride: shape.ContiguousStride(shp),
		id:     uuid.New(),
	}
	t.setRequiresGrad(requiresGrad)
	return t, nil
}

// Constant builds a non-differentiable leaf from raw data, the `constant`
// operator of spec.md §4.2.
func Constant(raw []float64, shp shape.Size) (*Tensor, error) {
	return FromData(raw, shp, false)
}

func (t *Tensor) setRequiresGrad(on bool) {
	t.requiresGrad = on
	if on {
		t.grad = &gradMeta{grad: storage.Allocate(shape.TotalSize(t.shp))}
	} else {
		t.grad = nil
	}
}

// ID is the uuid stamped on this tensor when it was created; views carry
// their source's ID. It is distinct from the storage block's own ID, and no
// error message in this module includes it.
func (t *Tensor) ID() uuid.UUID { return t.id }

// Shape returns a copy of this tensor's dimensions.
func (t *Tensor) Shape() shape.Size { return t.shp.Clone() }

// Stride returns a copy of this tensor's per-dimension stride.
func (t *Tensor) Stride() shape.IndexArray { return t.stride.Clone() }

// NDim is the dimension count — part of expr.Expression.
func (t *Tensor) NDim() int { return len(t.shp) }

// Size is the extent along dim — part of expr.Expression.
func (t *Tensor) Size(dim int) int { return t.shp[dim] }

// Numel is the total element count.
func (t *Tensor) Numel() int { return shape.TotalSize(t.shp) }

// RequiresGrad reports whether this tensor carries GradMeta.
func (t *Tensor) RequiresGrad() bool { return t.requiresGrad }

// IsContiguous reports whether stride matches the row-major layout of shp.
func (t *Tensor) IsContiguous() bool { return shape.IsContiguous(t.shp, t.stride) }

// Eval reads the scalar at multi-index idx — part of expr.Expression, lets
// a Tensor act directly as a leaf of an expression tree.
func (t *Tensor) Eval(idx shape.IndexArray) float64 {
	return t.store.At(shape.Offset(idx, t.stride))
}

// At is a convenience scalar reader for tests and callers outside the
// expression machinery.
func (t *Tensor) At(idx ...int) float64 {
	return t.Eval(shape.IndexArray(idx))
}

// Set writes the scalar at multi-index idx and bumps the storage version —
// one of the three write paths spec.md §3 requires to increment version
// exactly once per call.
func (t *Tensor) Set(v float64, idx ...int) {
	t.store.Set(shape.Offset(shape.IndexArray(idx), t.stride), v)
}

// Item extracts the sole scalar of a singleton tensor.
func (t *Tensor) Item() (float64, error) {
	if t.Numel() != 1 {
		return 0, checks.ScalarRequired("item() requires a single-element tensor, got shape %v", t.shp)
	}
	return t.store.At(0), nil
}

// Grad returns this tensor's accumulated gradient as a fresh Tensor (a
// read-only snapshot copy), or an error if it carries no GradMeta.
func (t *Tensor) Grad() (*Tensor, error) {
	if t.grad == nil {
		return nil, checks.True(false, "tensor does not require grad, has no gradient")
	}
	out := New(t.shp, false)
	it := shape.NewIterator(t.shp)
	for it.Next() {
		idx := it.Index()
		out.store.SetNoVersion(shape.Offset(idx, out.stride), t.grad.grad.At(shape.Offset(idx, t.stride)))
	}
	return out, nil
}

// ZeroGrad writes zeros into this tensor's gradient storage, used by
// pkg/optim's Base.ZeroGrad.
func (t *Tensor) ZeroGrad() {
	if t.grad == nil {
		return
	}
	n := t.grad.grad.Len()
	for i := 0; i < n; i++ {
		t.grad.grad.SetNoVersion(i, 0)
	}
}

// Version is this tensor's data-storage write counter — part of
// expr.GradSink.
func (t *Tensor) Version() int64 { return t.store.Version() }

var _ expr.Expression = (*Tensor)(nil)
var _ expr.GradSink = (*Tensor)(nil)
