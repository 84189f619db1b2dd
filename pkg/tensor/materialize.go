package tensor

import (
	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/shape"
)

// Assign materializes e into t's storage (dest = expr), per spec.md §4.3
// "Assignment (materialization)": shape-check, then — if t requires grad —
// capture e as t's grad_fn and clear from_view; bump t's version once;
// then evaluate e cell-by-cell into t's storage.
func (t *Tensor) Assign(e expr.Expression) error {
	if err := expr.SameShape(t, e); err != nil {
		return err
	}
	if t.requiresGrad {
		t.setGradFn(e)
		t.grad.fromView = false
	}
	t.store.IncrementVersion()
	materialize(t.store, t.shp, t.stride, e, false)
	return nil
}

// Materialize allocates a fresh tensor shaped like e (differentiable iff e
// is) and assigns e into it — the common "forward returns a tensor" pattern
// every pkg/nn module and every multi-step expression composition uses to
// turn a lazy expr.Expression back into a concrete tensor.Tensor.
func Materialize(e expr.Expression) (*Tensor, error) {
	out := New(expr.Shape(e), e.RequiresGrad())
	if err := out.Assign(e); err != nil {
		return nil, err
	}
	return out, nil
}

// AddAssign is identical to Assign except the write path accumulates
// (dest += expr) instead of overwriting.
func (t *Tensor) AddAssign(e expr.Expression) error {
	if err := expr.SameShape(t, e); err != nil {
		return err
	}
	if t.requiresGrad {
		t.setGradFn(e)
		t.grad.fromView = false
	}
	t.store.IncrementVersion()
	materialize(t.store, t.shp, t.stride, e, true)
	return nil
}

func (t *Tensor) setGradFn(e expr.Expression) {
	if bw, ok := e.(expr.Backwardable); ok {
		t.grad.gradFn = bw
		return
	}
	t.grad.gradFn = expr.Identity(e)
}

// materialize walks every destination position in row-major order,
// evaluating src at that position and writing (or accumulating) into dst.
func materialize(dst interface {
	SetNoVersion(i int, v float64)
	AddNoVersion(i int, v float64)
}, dstShape shape.Size, dstStride shape.IndexArray, src expr.Expression, accumulate bool) {
	it := shape.NewIterator(dstShape)
	for it.Next() {
		idx := it.Index()
		off := shape.Offset(idx, dstStride)
		v := src.Eval(idx)
		if accumulate {
			dst.AddNoVersion(off, v)
		} else {
			dst.SetNoVersion(off, v)
		}
	}
}
