package tensor

import (
	"sync/atomic"

	"github.com/Hirogava/tensorgrad/pkg/checks"
	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/shape"
)

// IncGradCount and DecGradCount implement the pending-consumer counter
// gating when backward may descend through this tensor — part of
// expr.GradSink.
func (t *Tensor) IncGradCount() { atomic.AddInt64(&t.gradCount, 1) }
func (t *Tensor) DecGradCount() { atomic.AddInt64(&t.gradCount, -1) }

// Contribute accumulates an incoming gradient expression into this
// tensor's gradient storage — summing across any dim where this tensor's
// own size is 1 but g's corresponding dim is larger (the broadcast
// gradient reduction spec.md §4.3 and invariant 4 require) — then, if
// every gradient-requiring consumer has now reported, continues the
// backward traversal through this tensor's own grad_fn. Part of
// expr.GradSink.
func (t *Tensor) Contribute(g expr.Expression) error {
	if t.grad == nil {
		return checks.True(false, "Contribute called on a tensor with no grad metadata")
	}
	if err := shapeRankMatches(t, g); err != nil {
		return err
	}
	it := shape.NewIterator(expr.Shape(g))
	for it.Next() {
		idx := it.Index()
		destIdx := broadcastDownIndex(t.shp, idx)
		off := shape.Offset(destIdx, t.stride)
		t.grad.grad.AddNoVersion(off, g.Eval(idx))
	}
	return t.maybeInvokeGradFn()
}

func shapeRankMatches(t *Tensor, g expr.Expression) error {
	if t.NDim() != g.NDim() {
		return checks.ShapeMismatch("gradient rank %d does not match tensor rank %d", g.NDim(), t.NDim())
	}
	return nil
}

// broadcastDownIndex projects a full-shape index idx down to destShape's
// own index space: any dim where destShape's size is 1 reads/writes index 0.
func broadcastDownIndex(destShape shape.Size, idx shape.IndexArray) shape.IndexArray {
	out := make(shape.IndexArray, len(destShape))
	for i := range out {
		if destShape[i] == 1 {
			out[i] = 0
		} else {
			out[i] = idx[i]
		}
	}
	return out
}

// Backward is the zero-argument backward() entrypoint: seeds this
// (singleton) tensor's gradient with 1 and continues the traversal through
// its grad_fn, per spec.md §4.3 "Backward trigger".
func (t *Tensor) Backward() error {
	if t.Numel() != 1 {
		return checks.ScalarRequired("backward() with no argument requires a single-element tensor, got shape %v", t.shp)
	}
	if !t.requiresGrad {
		return nil
	}
	t.grad.grad.AddNoVersion(0, 1.0)
	return t.maybeInvokeGradFn()
}

// maybeInvokeGradFn implements spec.md §4.3's gate: if this tensor is a
// view, its contribution already landed via storage aliasing, so simply
// forward the trigger to the view's source; otherwise invoke grad_fn only
// once gradCount has reached zero (every gradient-requiring consumer has
// reported).
func (t *Tensor) maybeInvokeGradFn() error {
	if t.grad.fromView {
		return t.grad.viewSource.maybeInvokeGradFn()
	}
	if t.grad.gradFn != nil && atomic.LoadInt64(&t.gradCount) == 0 {
		return t.grad.gradFn.Backward(gradView{t: t})
	}
	return nil
}
