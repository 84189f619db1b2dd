package tensor

import (
	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/storage"
)

// gradMeta is attached to any Tensor with requiresGrad set, per spec.md §3.
type gradMeta struct {
	grad       storage.Storage   // same logical shape as the owning tensor
	fromView   bool              // true if this tensor is a non-copying view of another
	viewSource *Tensor           // set when the tensor was created as a view
	gradFn     expr.Backwardable // the captured expression to propagate through; nil for leaves and views until assigned into
}

// gradView is a read-only Expression wrapper over a tensor's own gradient
// storage, handed to grad_fn.Backward as the incoming gradient.
type gradView struct {
	t *Tensor
}

func (g gradView) NDim() int          { return g.t.NDim() }
func (g gradView) Size(d int) int     { return g.t.Size(d) }
func (g gradView) RequiresGrad() bool { return false }
func (g gradView) Eval(idx shape.IndexArray) float64 {
	return g.t.grad.grad.At(shape.Offset(idx, g.t.stride))
}
