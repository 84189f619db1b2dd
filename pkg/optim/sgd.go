package optim

import "github.com/Hirogava/tensorgrad/pkg/tensor"

// SGD is spec.md §4.5's plain stochastic gradient descent: step() writes
// param ← param − lr·grad directly on each parameter's storage bytes,
// bypassing the tensor expression interface so grad_fn and version are
// left untouched.
type SGD struct {
	Base
	LR float64
}

func NewSGD(lr float64, paramSets ...map[string]*tensor.Tensor) *SGD {
	return &SGD{Base: NewBase(paramSets...), LR: lr}
}

func (s *SGD) Step() {
	for _, p := range s.Params {
		n := p.NumData()
		for i := 0; i < n; i++ {
			p.SetDataRaw(i, p.DataAt(i)-s.LR*p.GradAt(i))
		}
	}
}
