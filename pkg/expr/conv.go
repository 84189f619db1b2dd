// Img2Col and MaxPool2d, the windowed transforms spec.md §4.2 names, with
// exact index-decomposition formulas per spec.md §4.2's "img2col indexing"
// and "max_pool2d forward" paragraphs. Grounded in original_source's
// exp/operator/conv.hpp (img2col row/col decomposition and its backward
// window-alignment sum) and internal/layers/conv2d.go's kernel/stride/pad
// plumbing from the teacher.
package expr

import (
	"math"

	"github.com/Hirogava/tensorgrad/pkg/shape"
)

type convDims struct {
	kh, kw, sh, sw, ph, pw int
}

func (d convDims) outDims(x Expression) (b, c, h, w, oh, ow int) {
	b, c, h, w = x.Size(0), x.Size(1), x.Size(2), x.Size(3)
	oh = (h+2*d.ph-d.kh)/d.sh + 1
	ow = (w+2*d.pw-d.kw)/d.sw + 1
	return
}

// --- img2col ---

type img2colOp struct{ convDims }

func (op img2colOp) NDim(operands []Operand) int { return 2 }
func (op img2colOp) Size(d int, operands []Operand) int {
	x := operands[0].Expr
	b, c, _, _, oh, ow := op.outDims(x)
	if d == 0 {
		return oh * ow * b
	}
	return c * op.kh * op.kw
}
func (op img2colOp) AllowBroadcast() bool { return false }

func (op img2colOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	x := operands[0].Expr
	b0, _, h, w, _, ow := op.outDims(x)
	r, c := idx[0], idx[1]

	b := r % b0
	rest := r / b0
	wOut := rest % ow
	hOut := rest / ow

	kw := c % op.kw
	rest2 := c / op.kw
	kh := rest2 % op.kh
	kc := rest2 / op.kh

	srcH := hOut*op.sh + kh - op.ph
	srcW := wOut*op.sw + kw - op.pw
	if srcH < 0 || srcH >= h || srcW < 0 || srcW >= w {
		return 0
	}
	return x.Eval(shape.IndexArray{b, kc, srcH, srcW})
}

func (op img2colOp) Grad(operandIndex int, g Expression, operands []Operand) Expression {
	if operandIndex != 0 {
		return nil
	}
	x := operands[0].Expr
	b, c, h, w, oh, ow := op.outDims(x)
	return &img2colGradNode{g: g, dims: op.convDims, b: b, c: c, h: h, w: w, oh: oh, ow: ow}
}

type img2colGradNode struct {
	g              Expression
	dims           convDims
	b, c, h, w     int
	oh, ow         int
}

func (n *img2colGradNode) NDim() int { return 4 }
func (n *img2colGradNode) Size(d int) int {
	switch d {
	case 0:
		return n.b
	case 1:
		return n.c
	case 2:
		return n.h
	default:
		return n.w
	}
}
func (n *img2colGradNode) RequiresGrad() bool { return false }

func (n *img2colGradNode) Eval(idx shape.IndexArray) float64 {
	b, c, i, j := idx[0], idx[1], idx[2], idx[3]
	d := n.dims
	sum := 0.0
	for kh := 0; kh < d.kh; kh++ {
		numH := i + d.ph - kh
		if numH%d.sh != 0 {
			continue
		}
		hOut := numH / d.sh
		if hOut < 0 || hOut >= n.oh {
			continue
		}
		for kw := 0; kw < d.kw; kw++ {
			numW := j + d.pw - kw
			if numW%d.sw != 0 {
				continue
			}
			wOut := numW / d.sw
			if wOut < 0 || wOut >= n.ow {
				continue
			}
			r := hOut*(n.ow*n.b) + wOut*n.b + b
			col := c*(d.kh*d.kw) + kh*d.kw + kw
			sum += n.g.Eval(shape.IndexArray{r, col})
		}
	}
	return sum
}

// Img2Col transforms x (B,C,H,W) into (OH·OW·B, C·KH·KW) per the row/col
// decomposition spec.md §4.2 defines, zero-filling out-of-bounds reads from
// the (conceptually) padded image.
func Img2Col(x Expression, kh, kw, sh, sw, ph, pw int) *Node {
	return NewNode(img2colOp{convDims{kh, kw, sh, sw, ph, pw}}, Capture(x, true))
}

// --- max_pool2d ---

type maxPool2dOp struct{ convDims }

func (op maxPool2dOp) NDim(operands []Operand) int { return 4 }
func (op maxPool2dOp) Size(d int, operands []Operand) int {
	x := operands[0].Expr
	b, c, _, _, oh, ow := op.outDims(x)
	switch d {
	case 0:
		return b
	case 1:
		return c
	case 2:
		return oh
	default:
		return ow
	}
}
func (op maxPool2dOp) AllowBroadcast() bool { return false }

// windowArgmax scans the pooling window for output cell (b,c,ho,wo),
// returning the winning (kh,kw) and whether that winner is a real
// (in-bounds) input cell rather than a padded zero.
func (op maxPool2dOp) windowArgmax(x Expression, h, w, b, c, ho, wo int) (bestKh, bestKw int, bestVal float64, real bool) {
	bestVal = math.Inf(-1)
	for kh := 0; kh < op.kh; kh++ {
		srcH := ho*op.sh + kh - op.ph
		for kw := 0; kw < op.kw; kw++ {
			srcW := wo*op.sw + kw - op.pw
			var v float64
			isReal := srcH >= 0 && srcH < h && srcW >= 0 && srcW < w
			if isReal {
				v = x.Eval(shape.IndexArray{b, c, srcH, srcW})
			}
			if v > bestVal {
				bestVal, bestKh, bestKw, real = v, kh, kw, isReal
			}
		}
	}
	return
}

func (op maxPool2dOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	x := operands[0].Expr
	_, _, h, w, _, _ := op.outDims(x)
	b, c, ho, wo := idx[0], idx[1], idx[2], idx[3]
	_, _, v, _ := op.windowArgmax(x, h, w, b, c, ho, wo)
	return v
}

func (op maxPool2dOp) Grad(operandIndex int, g Expression, operands []Operand) Expression {
	if operandIndex != 0 {
		return nil
	}
	x := operands[0].Expr
	b, c, h, w, oh, ow := op.outDims(x)
	return &maxPool2dGradNode{g: g, x: x, op: op, b: b, c: c, h: h, w: w, oh: oh, ow: ow}
}

type maxPool2dGradNode struct {
	g          Expression
	x          Expression
	op         maxPool2dOp
	b, c, h, w int
	oh, ow     int
}

func (n *maxPool2dGradNode) NDim() int { return 4 }
func (n *maxPool2dGradNode) Size(d int) int {
	switch d {
	case 0:
		return n.b
	case 1:
		return n.c
	case 2:
		return n.h
	default:
		return n.w
	}
}
func (n *maxPool2dGradNode) RequiresGrad() bool { return false }

func (n *maxPool2dGradNode) Eval(idx shape.IndexArray) float64 {
	b, c, i, j := idx[0], idx[1], idx[2], idx[3]
	d := n.op.convDims
	sum := 0.0
	for ho := 0; ho < n.oh; ho++ {
		kh := i - ho*d.sh + d.ph
		if kh < 0 || kh >= d.kh {
			continue
		}
		for wo := 0; wo < n.ow; wo++ {
			kw := j - wo*d.sw + d.pw
			if kw < 0 || kw >= d.kw {
				continue
			}
			bestKh, bestKw, _, real := n.op.windowArgmax(n.x, n.h, n.w, b, c, ho, wo)
			if real && bestKh == kh && bestKw == kw {
				sum += n.g.Eval(shape.IndexArray{b, c, ho, wo})
			}
		}
	}
	return sum
}

// MaxPool2d pools x (B,C,H,W) into (B,C,OH,OW), scanning each window in
// padded space where out-of-image cells are a valid 0-valued candidate;
// its gradient routes to the winning position the same way Max's does.
func MaxPool2d(x Expression, kh, kw, sh, sw, ph, pw int) *Node {
	return NewNode(maxPool2dOp{convDims{kh, kw, sh, sw, ph, pw}}, Capture(x, true))
}
