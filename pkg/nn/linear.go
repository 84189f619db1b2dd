package nn

import (
	"math/rand"

	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

// Linear implements spec.md §4.4's Linear(in, out): weight (out, in), bias
// (1, out); forward(x) = matmul(x, transpose(weight)) + bias, the bias
// broadcasting over the batch dim via the size-1-dim-is-stride-0 rule.
type Linear struct {
	Weight *tensor.Tensor
	Bias   *tensor.Tensor
	in, out int
}

// NewLinear allocates weight/bias, Kaiming-initialized from rng.
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	weight := tensor.NewParam(shape.Size{out, in}, func(buf []float64) {
		tensor.InitKaiming(buf, in, rng)
	})
	bias := tensor.NewParam(shape.Size{1, out}, func(buf []float64) {
		for i := range buf {
			buf[i] = 0
		}
	})
	return &Linear{Weight: weight, Bias: bias, in: in, out: out}
}

// Forward computes matmul(x, weightᵀ) + bias for x shaped (batch, in).
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	wT := expr.MatrixTranspose(l.Weight)
	prod := expr.MatMul(x, wT)
	sum := expr.Add(prod, l.Bias)
	return tensor.Materialize(sum)
}

// Parameters exposes weight and bias for the optimizer.
func (l *Linear) Parameters() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{"weight": l.Weight, "bias": l.Bias}
}

// LinearWithReLU is Linear followed by relu, per spec.md §4.4.
type LinearWithReLU struct {
	*Linear
}

func NewLinearWithReLU(in, out int, rng *rand.Rand) *LinearWithReLU {
	return &LinearWithReLU{Linear: NewLinear(in, out, rng)}
}

func (l *LinearWithReLU) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	wT := expr.MatrixTranspose(l.Weight)
	prod := expr.MatMul(x, wT)
	sum := expr.Add(prod, l.Bias)
	return tensor.Materialize(expr.Relu(sum))
}
