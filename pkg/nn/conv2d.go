package nn

import (
	"math/rand"

	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

// Conv2d implements spec.md §4.4's Conv2d(in_c, out_c, kernel, stride,
// padding): a single weight parameter shaped (out_c, in_c·kh·kw), applied
// via img2col + matmul + reshape/permute back to (B, out_c, OH, OW).
type Conv2d struct {
	Weight                 *tensor.Tensor
	inC, outC              int
	kh, kw, sh, sw, ph, pw int
}

func NewConv2d(inC, outC, kh, kw, sh, sw, ph, pw int, rng *rand.Rand) *Conv2d {
	fanIn := inC * kh * kw
	weight := tensor.NewParam(shape.Size{outC, fanIn}, func(buf []float64) {
		tensor.InitKaiming(buf, fanIn, rng)
	})
	return &Conv2d{Weight: weight, inC: inC, outC: outC, kh: kh, kw: kw, sh: sh, sw: sw, ph: ph, pw: pw}
}

func outDim(size, k, s, p int) int { return (size+2*p-k)/s + 1 }

// forwardFlat runs img2col + matmul and returns the result still laid out
// as (OH, OW, B, out_c), before the permute back to (B, out_c, OH, OW) —
// shared by Conv2d and Conv2dWithReLU.
func (c *Conv2d) forwardFlat(x *tensor.Tensor) (*tensor.Tensor, int, int, int, error) {
	xs := x.Shape()
	b, h, w := xs[0], xs[2], xs[3]
	oh := outDim(h, c.kh, c.sh, c.ph)
	ow := outDim(w, c.kw, c.sw, c.pw)

	cols, err := tensor.Materialize(expr.Img2Col(x, c.kh, c.kw, c.sh, c.sw, c.ph, c.pw))
	if err != nil {
		return nil, 0, 0, 0, err
	}
	wT := expr.MatrixTranspose(c.Weight)
	flat, err := tensor.Materialize(expr.MatMul(cols, wT))
	if err != nil {
		return nil, 0, 0, 0, err
	}
	reshaped, err := flat.View(shape.Size{oh, ow, b, c.outC})
	if err != nil {
		return nil, 0, 0, 0, err
	}
	return reshaped, b, oh, ow, nil
}

// Forward computes the convolution, returning a (B, out_c, OH, OW) tensor —
// a permuted view sharing the matmul result's storage and grad, per
// spec.md §4.4 step 3.
func (c *Conv2d) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	reshaped, _, _, _, err := c.forwardFlat(x)
	if err != nil {
		return nil, err
	}
	return reshaped.Permute([]int{2, 3, 0, 1})
}

func (c *Conv2d) Parameters() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{"weight": c.Weight}
}

// Conv2dWithReLU is Conv2d followed by relu, per spec.md §4.4.
type Conv2dWithReLU struct {
	*Conv2d
}

func NewConv2dWithReLU(inC, outC, kh, kw, sh, sw, ph, pw int, rng *rand.Rand) *Conv2dWithReLU {
	return &Conv2dWithReLU{Conv2d: NewConv2d(inC, outC, kh, kw, sh, sw, ph, pw, rng)}
}

func (c *Conv2dWithReLU) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	reshaped, _, _, _, err := c.forwardFlat(x)
	if err != nil {
		return nil, err
	}
	permuted, err := reshaped.Permute([]int{2, 3, 0, 1})
	if err != nil {
		return nil, err
	}
	return tensor.Materialize(expr.Relu(permuted))
}
