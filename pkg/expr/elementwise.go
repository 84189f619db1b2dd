// Elementwise arithmetic and activation operators, grounded in the
// teacher's pkg/tensor/ops.go (eager Add/Sub/Mul/Div/Apply) and
// pkg/autograd/autograd.go's ReLU/Sigmoid ops, lifted into the lazy Node
// encoding spec.md §4.2 requires and extended with the broadcasting rule.
package expr

import (
	"math"

	"github.com/Hirogava/tensorgrad/pkg/shape"
)

type binaryOp struct {
	fn     func(a, b float64) float64
	gradA  func(g, a, b float64) float64
	gradB  func(g, a, b float64) float64
	hasA   bool
	hasB   bool
}

func (op binaryOp) outShape(operands []Operand) (shape.IndexArray, error) {
	return broadcastShape(operands[0].Expr, operands[1].Expr)
}

func (op binaryOp) NDim(operands []Operand) int {
	s, _ := op.outShape(operands)
	return len(s)
}

func (op binaryOp) Size(dim int, operands []Operand) int {
	s, _ := op.outShape(operands)
	return s[dim]
}

func (op binaryOp) AllowBroadcast() bool { return true }

func (op binaryOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	a := operands[0].Expr
	b := operands[1].Expr
	av := a.Eval(broadcastIndex(a, idx))
	bv := b.Eval(broadcastIndex(b, idx))
	return op.fn(av, bv)
}

func (op binaryOp) Grad(operandIndex int, g Expression, operands []Operand) Expression {
	a := operands[0].Expr
	b := operands[1].Expr
	if operandIndex == 0 {
		if !op.hasA {
			return nil
		}
		return &elementwiseGradNode{g: g, a: a, b: b, fn: op.gradA, wrt: a}
	}
	if !op.hasB {
		return nil
	}
	return &elementwiseGradNode{g: g, a: a, b: b, fn: op.gradB, wrt: b}
}

// elementwiseGradNode evaluates g(idx) * d/dwrt at idx, reading a and b at
// the same (possibly broadcast) index as the forward pass did.
type elementwiseGradNode struct {
	g    Expression
	a, b Expression
	fn   func(g, a, b float64) float64
	wrt  Expression
}

func (n *elementwiseGradNode) NDim() int      { return n.g.NDim() }
func (n *elementwiseGradNode) Size(d int) int { return n.g.Size(d) }
func (n *elementwiseGradNode) RequiresGrad() bool { return false }
func (n *elementwiseGradNode) Eval(idx shape.IndexArray) float64 {
	av := n.a.Eval(broadcastIndex(n.a, idx))
	bv := n.b.Eval(broadcastIndex(n.b, idx))
	gv := n.g.Eval(idx)
	return n.fn(gv, av, bv)
}

// Add returns a + b, broadcasting per spec.md §4.2.
func Add(a, b Expression) *Node {
	return NewNode(binaryOp{
		fn:    func(x, y float64) float64 { return x + y },
		gradA: func(g, _, _ float64) float64 { return g },
		gradB: func(g, _, _ float64) float64 { return g },
		hasA:  true, hasB: true,
	}, Capture(a, true), Capture(b, true))
}

// Sub returns a - b, broadcasting per spec.md §4.2.
func Sub(a, b Expression) *Node {
	return NewNode(binaryOp{
		fn:    func(x, y float64) float64 { return x - y },
		gradA: func(g, _, _ float64) float64 { return g },
		gradB: func(g, _, _ float64) float64 { return -g },
		hasA:  true, hasB: true,
	}, Capture(a, true), Capture(b, true))
}

// Mul returns the Hadamard product a * b, broadcasting per spec.md §4.2.
func Mul(a, b Expression) *Node {
	return NewNode(binaryOp{
		fn:    func(x, y float64) float64 { return x * y },
		gradA: func(g, _, b float64) float64 { return g * b },
		gradB: func(g, a, _ float64) float64 { return g * a },
		hasA:  true, hasB: true,
	}, Capture(a, true), Capture(b, true))
}

type unaryOp struct {
	fn   func(x float64) float64
	grad func(g, x, y float64) float64 // y is the forward output, for ops whose grad rule is cheaper in terms of the output (sigmoid)
}

func (op unaryOp) NDim(operands []Operand) int        { return operands[0].Expr.NDim() }
func (op unaryOp) Size(dim int, operands []Operand) int { return operands[0].Expr.Size(dim) }
func (op unaryOp) AllowBroadcast() bool               { return false }
func (op unaryOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	return op.fn(operands[0].Expr.Eval(idx))
}
func (op unaryOp) Grad(operandIndex int, g Expression, operands []Operand) Expression {
	if operandIndex != 0 {
		return nil
	}
	x := operands[0].Expr
	return &unaryGradNode{g: g, x: x, fn: op.fn, grad: op.grad}
}

type unaryGradNode struct {
	g    Expression
	x    Expression
	fn   func(float64) float64
	grad func(g, x, y float64) float64
}

func (n *unaryGradNode) NDim() int              { return n.g.NDim() }
func (n *unaryGradNode) Size(d int) int         { return n.g.Size(d) }
func (n *unaryGradNode) RequiresGrad() bool     { return false }
func (n *unaryGradNode) Eval(idx shape.IndexArray) float64 {
	xv := n.x.Eval(idx)
	yv := n.fn(xv)
	gv := n.g.Eval(idx)
	return n.grad(gv, xv, yv)
}

// Minus returns -a.
func Minus(a Expression) *Node {
	return NewNode(unaryOp{
		fn:   func(x float64) float64 { return -x },
		grad: func(g, _, _ float64) float64 { return -g },
	}, Capture(a, true))
}

// Exp returns e^a.
func Exp(a Expression) *Node {
	return NewNode(unaryOp{
		fn:   math.Exp,
		grad: func(g, _, y float64) float64 { return g * y },
	}, Capture(a, true))
}

// Log returns ln(a).
func Log(a Expression) *Node {
	return NewNode(unaryOp{
		fn:   math.Log,
		grad: func(g, x, _ float64) float64 { return g / x },
	}, Capture(a, true))
}

// Sigmoid returns the logistic sigmoid of a.
func Sigmoid(a Expression) *Node {
	sig := func(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }
	return NewNode(unaryOp{
		fn:   sig,
		grad: func(g, _, y float64) float64 { return g * y * (1 - y) },
	}, Capture(a, true))
}

// Relu returns max(a, 0).
func Relu(a Expression) *Node {
	return NewNode(unaryOp{
		fn: func(x float64) float64 {
			if x > 0 {
				return x
			}
			return 0
		},
		grad: func(g, x, _ float64) float64 {
			if x > 0 {
				return g
			}
			return 0
		},
	}, Capture(a, true))
}
