// Reduction operators (mean, max, argmax) and the numerically-stabilized
// log_softmax/softmax/nll_loss pair, grounded in spec.md §4.2's forward
// operator inventory and original_source's nll_loss.hpp.
package expr

import (
	"math"

	"github.com/Hirogava/tensorgrad/pkg/shape"
)

func removeAt(s shape.IndexArray, i int) shape.IndexArray {
	out := make(shape.IndexArray, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out
}

func insertAt(s shape.IndexArray, i, v int) shape.IndexArray {
	out := make(shape.IndexArray, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	out = append(out, s[i:]...)
	return out
}

// --- mean ---

type meanOp struct{ dim int }

func (op meanOp) NDim(operands []Operand) int { return operands[0].Expr.NDim() - 1 }
func (op meanOp) Size(d int, operands []Operand) int {
	x := operands[0].Expr
	if d < op.dim {
		return x.Size(d)
	}
	return x.Size(d + 1)
}
func (op meanOp) AllowBroadcast() bool { return false }
func (op meanOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	x := operands[0].Expr
	n := x.Size(op.dim)
	sum := 0.0
	full := insertAt(idx, op.dim, 0)
	for k := 0; k < n; k++ {
		full[op.dim] = k
		sum += x.Eval(full)
	}
	return sum / float64(n)
}
func (op meanOp) Grad(operandIndex int, g Expression, operands []Operand) Expression {
	if operandIndex != 0 {
		return nil
	}
	x := operands[0].Expr
	return &meanGradNode{g: g, x: x, n: x.Size(op.dim), dim: op.dim}
}

type meanGradNode struct {
	g   Expression
	x   Expression
	n   int
	dim int
}

func (n *meanGradNode) NDim() int          { return n.x.NDim() }
func (n *meanGradNode) Size(d int) int     { return n.x.Size(d) }
func (n *meanGradNode) RequiresGrad() bool { return false }
func (n *meanGradNode) Eval(idx shape.IndexArray) float64 {
	return n.g.Eval(removeAt(idx, n.dim)) / float64(n.n)
}

// Mean reduces x along dim, averaging.
func Mean(x Expression, dim int) *Node {
	return NewNode(meanOp{dim: dim}, Capture(x, true))
}

// --- max / argmax ---

func argmaxAlongDim(x Expression, dim int, reducedIdx shape.IndexArray) (int, float64) {
	n := x.Size(dim)
	full := insertAt(reducedIdx, dim, 0)
	best, bestVal := 0, math.Inf(-1)
	for k := 0; k < n; k++ {
		full[dim] = k
		v := x.Eval(full)
		if v > bestVal {
			bestVal, best = v, k
		}
	}
	return best, bestVal
}

type maxOp struct{ dim int }

func (op maxOp) NDim(operands []Operand) int { return operands[0].Expr.NDim() - 1 }
func (op maxOp) Size(d int, operands []Operand) int {
	x := operands[0].Expr
	if d < op.dim {
		return x.Size(d)
	}
	return x.Size(d + 1)
}
func (op maxOp) AllowBroadcast() bool { return false }
func (op maxOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	_, v := argmaxAlongDim(operands[0].Expr, op.dim, idx)
	return v
}
func (op maxOp) Grad(operandIndex int, g Expression, operands []Operand) Expression {
	if operandIndex != 0 {
		return nil
	}
	x := operands[0].Expr
	return &maxGradNode{g: g, x: x, dim: op.dim}
}

type maxGradNode struct {
	g   Expression
	x   Expression
	dim int
}

func (n *maxGradNode) NDim() int          { return n.x.NDim() }
func (n *maxGradNode) Size(d int) int     { return n.x.Size(d) }
func (n *maxGradNode) RequiresGrad() bool { return false }
func (n *maxGradNode) Eval(idx shape.IndexArray) float64 {
	reduced := removeAt(idx, n.dim)
	argmax, _ := argmaxAlongDim(n.x, n.dim, reduced)
	if idx[n.dim] != argmax {
		return 0
	}
	return n.g.Eval(reduced)
}

// Max reduces x along dim, keeping the maximum value.
func Max(x Expression, dim int) *Node {
	return NewNode(maxOp{dim: dim}, Capture(x, true))
}

type argmaxOp struct{ dim int }

func (op argmaxOp) NDim(operands []Operand) int { return operands[0].Expr.NDim() - 1 }
func (op argmaxOp) Size(d int, operands []Operand) int {
	x := operands[0].Expr
	if d < op.dim {
		return x.Size(d)
	}
	return x.Size(d + 1)
}
func (op argmaxOp) AllowBroadcast() bool { return false }
func (op argmaxOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	best, _ := argmaxAlongDim(operands[0].Expr, op.dim, idx)
	return float64(best)
}
func (op argmaxOp) Grad(int, Expression, []Operand) Expression { return nil }

// Argmax reduces x along dim, returning (as a float64) the index of the max.
func Argmax(x Expression, dim int) *Node {
	return NewNode(argmaxOp{dim: dim}, Capture(x, false))
}

// --- log_softmax / softmax ---

type logSoftmaxOp struct{ dim int }

func (op logSoftmaxOp) NDim(operands []Operand) int        { return operands[0].Expr.NDim() }
func (op logSoftmaxOp) Size(d int, operands []Operand) int { return operands[0].Expr.Size(d) }
func (op logSoftmaxOp) AllowBroadcast() bool                { return false }

func (op logSoftmaxOp) logDenom(x Expression, dim int, idx shape.IndexArray) (m, denom float64) {
	reduced := removeAt(idx, dim)
	_, m = argmaxAlongDim(x, dim, reduced)
	n := x.Size(dim)
	full := insertAt(reduced, dim, 0)
	for k := 0; k < n; k++ {
		full[dim] = k
		denom += math.Exp(x.Eval(full) - m)
	}
	return
}

func (op logSoftmaxOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	x := operands[0].Expr
	m, denom := op.logDenom(x, op.dim, idx)
	return x.Eval(idx) - m - math.Log(denom)
}

func (op logSoftmaxOp) Grad(operandIndex int, g Expression, operands []Operand) Expression {
	if operandIndex != 0 {
		return nil
	}
	x := operands[0].Expr
	return &logSoftmaxGradNode{g: g, x: x, dim: op.dim, op: op}
}

type logSoftmaxGradNode struct {
	g   Expression
	x   Expression
	dim int
	op  logSoftmaxOp
}

func (n *logSoftmaxGradNode) NDim() int          { return n.x.NDim() }
func (n *logSoftmaxGradNode) Size(d int) int     { return n.x.Size(d) }
func (n *logSoftmaxGradNode) RequiresGrad() bool { return false }
func (n *logSoftmaxGradNode) Eval(idx shape.IndexArray) float64 {
	// dL/dx_i = g_i - softmax_i * sum_j(g_j), sum over the reduced dim.
	reduced := removeAt(idx, n.dim)
	m, denom := n.op.logDenom(n.x, n.dim, idx)
	logSoftmaxHere := n.x.Eval(idx) - m - math.Log(denom)
	softmaxHere := math.Exp(logSoftmaxHere)

	n2 := n.x.Size(n.dim)
	full := insertAt(reduced, n.dim, 0)
	gsum := 0.0
	for k := 0; k < n2; k++ {
		full[n.dim] = k
		gsum += n.g.Eval(full)
	}
	return n.g.Eval(idx) - softmaxHere*gsum
}

// LogSoftmax computes log(softmax(x)) along dim, stabilized by subtracting
// the per-slice max before exponentiating, per spec.md §4.2.
func LogSoftmax(x Expression, dim int) *Node {
	return NewNode(logSoftmaxOp{dim: dim}, Capture(x, true))
}

// Softmax is exp(log_softmax(x, dim)); its gradient rule falls out of
// composing Exp's grad rule with LogSoftmax's, so no separate Op is needed.
func Softmax(x Expression, dim int) *Node {
	return Exp(LogSoftmax(x, dim))
}

// --- nll_loss ---

type nllLossOp struct{ labels []int }

func (op nllLossOp) NDim(operands []Operand) int         { return 1 }
func (op nllLossOp) Size(d int, operands []Operand) int { return operands[0].Expr.Size(0) }
func (op nllLossOp) AllowBroadcast() bool                { return false }
func (op nllLossOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	i := idx[0]
	label := op.labels[i]
	return -operands[0].Expr.Eval(shape.IndexArray{i, label})
}
func (op nllLossOp) Grad(operandIndex int, g Expression, operands []Operand) Expression {
	if operandIndex != 0 {
		return nil
	}
	return &nllLossGradNode{g: g, labels: op.labels, x: operands[0].Expr}
}

type nllLossGradNode struct {
	g      Expression
	x      Expression
	labels []int
}

func (n *nllLossGradNode) NDim() int          { return n.x.NDim() }
func (n *nllLossGradNode) Size(d int) int     { return n.x.Size(d) }
func (n *nllLossGradNode) RequiresGrad() bool { return false }
func (n *nllLossGradNode) Eval(idx shape.IndexArray) float64 {
	i, cls := idx[0], idx[1]
	if cls != n.labels[i] {
		return 0
	}
	return -n.g.Eval(shape.IndexArray{i})
}

// NLLLoss computes the negative log likelihood: input is (N,C) log
// probabilities, labels has length N; output is (N,), output[i] =
// -input[i, labels[i]].
func NLLLoss(logProbs Expression, labels []int) *Node {
	return NewNode(nllLossOp{labels: labels}, Capture(logProbs, true))
}
