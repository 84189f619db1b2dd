package nn

import (
	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

// MaxPool2d implements spec.md §4.4's MaxPool2d(kernel, stride, padding):
// a parameterless module wrapping the max_pool2d expression operator.
type MaxPool2d struct {
	kh, kw, sh, sw, ph, pw int
}

func NewMaxPool2d(kh, kw, sh, sw, ph, pw int) *MaxPool2d {
	return &MaxPool2d{kh, kw, sh, sw, ph, pw}
}

func (m *MaxPool2d) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Materialize(expr.MaxPool2d(x, m.kh, m.kw, m.sh, m.sw, m.ph, m.pw))
}

func (m *MaxPool2d) Parameters() map[string]*tensor.Tensor { return nil }
