package tensor

// NumData is the element count of this tensor's own contiguous data region
// — used by optimizers walking flat parameter/gradient buffers directly.
func (t *Tensor) NumData() int { return t.Numel() }

// DataAt and GradAt read the i-th cell of this tensor's data/gradient
// storage as a flat contiguous sequence (valid when the tensor is
// contiguous, true for every parameter leaf pkg/nn constructs).
func (t *Tensor) DataAt(i int) float64 { return t.store.At(i) }
func (t *Tensor) GradAt(i int) float64 {
	if t.grad == nil {
		return 0
	}
	return t.grad.grad.At(i)
}

// SetDataRaw writes the i-th cell of this tensor's data storage without
// bumping the storage version or touching grad_fn — the direct byte-level
// write spec.md §4.5 requires of SGD.step so that parameter updates never
// look, to the autograd engine, like a graph-tracked assignment.
func (t *Tensor) SetDataRaw(i int, v float64) { t.store.SetNoVersion(i, v) }
