// Package expr implements the lazy expression tree that arithmetic over
// tensors builds: a node referencing 1-N operand expressions, evaluated
// cell-by-cell only when materialized into a tensor. Grounded in the
// teacher's pkg/tensor/graph.Node (operand + operation pairing) generalized
// from the teacher's eager per-call Apply/Add/Mul (pkg/tensor/ops.go) into
// the lazy composition spec.md §4.2 requires, and in original_source's
// ExpImpl / ExpImplPtr template pair (operand capture with a captured
// version and a with-grad flag).
package expr

import (
	"github.com/Hirogava/tensorgrad/pkg/checks"
	"github.com/Hirogava/tensorgrad/pkg/shape"
)

// Expression is the capability set every node and every leaf tensor
// exposes for composition: shape query, pointwise evaluation, and whether
// it participates in gradient tracking.
type Expression interface {
	NDim() int
	Size(dim int) int
	Eval(idx shape.IndexArray) float64
	RequiresGrad() bool
}

// GradSink is implemented by tensor.Tensor. Operand capture and backward
// descent talk to tensors only through this interface so that pkg/expr
// never imports pkg/tensor (which imports pkg/expr to store a materialized
// expression as its grad_fn) — the standard way to break an otherwise
// mutual package dependency in Go.
type GradSink interface {
	Expression
	Version() int64
	IncGradCount()
	DecGradCount()
	// Contribute accumulates grad into the sink's own gradient storage
	// (summing across broadcast dims as needed) and, once every
	// gradient-requiring consumer has reported (gradcount reaches zero),
	// continues the backward traversal through the sink's own grad_fn.
	Contribute(grad Expression) error
}

// Backwardable is implemented by *Node: an unmaterialized intermediate
// expression propagates an incoming gradient straight through to its own
// operands, since only GradSinks (tensors) hold the pending-consumer
// counters backward needs to wait on. pkg/tensor stores whatever
// expression was assigned into a tensor as that tensor's grad_fn through
// this interface.
type Backwardable interface {
	Backward(grad Expression) error
}

// Operand is a captured reference to one operand of a Node: the expression
// itself, whether it is tracked for gradient purposes, and (only meaningful
// when the expression is a GradSink) the version captured at construction
// time, checked again at backward time to catch in-place mutation of a
// leaf already consumed by the graph.
type Operand struct {
	Expr     Expression
	WithGrad bool
	Version  int64
	sink     GradSink
}

// Capture records operand e as used by an enclosing node under intent
// withGrad. Per spec.md §4.3's capture rules: the effective with-grad flag
// is withGrad && e.RequiresGrad(), and if effective and e is a GradSink, its
// pending-consumer counter is incremented and its current version captured.
func Capture(e Expression, withGrad bool) Operand {
	effective := withGrad && e.RequiresGrad()
	op := Operand{Expr: e, WithGrad: effective}
	if sink, ok := e.(GradSink); ok {
		op.sink = sink
		op.Version = sink.Version()
		if effective {
			sink.IncGradCount()
		}
	}
	return op
}

// Op is the per-operator forward/backward rule pair: ndim and size as a
// function of operands and operator parameters, pointwise evaluation, and
// a gradient rule per operand position. Grad may return nil to mean "no
// gradient flows to this operand" (e.g. the RHS of a unary op, or argmax).
type Op interface {
	NDim(operands []Operand) int
	Size(dim int, operands []Operand) int
	Eval(idx shape.IndexArray, operands []Operand) float64
	Grad(operandIndex int, g Expression, operands []Operand) Expression
	AllowBroadcast() bool
}

// Node is a lazy record of one operator applied to its operands. It
// exposes the same Expression interface as a tensor so nodes compose
// without materializing an intermediate buffer.
type Node struct {
	op       Op
	operands []Operand
}

// NewNode builds a node for op over operands the caller has already
// captured (every differentiable combinator in this package captures its
// operands with gradient intent; Argmax captures without it;
// non-differentiable parameters such as kernel size or integer class
// labels are passed to the Op as plain parameters, never as Operands).
func NewNode(op Op, operands ...Operand) *Node {
	return &Node{op: op, operands: operands}
}

func (n *Node) NDim() int             { return n.op.NDim(n.operands) }
func (n *Node) Size(dim int) int      { return n.op.Size(dim, n.operands) }
func (n *Node) Eval(idx shape.IndexArray) float64 {
	return n.op.Eval(idx, n.operands)
}

func (n *Node) RequiresGrad() bool {
	for _, o := range n.operands {
		if o.Expr.RequiresGrad() {
			return true
		}
	}
	return false
}

// Backward propagates an incoming gradient expression g to every
// gradient-tracked operand: a GradSink operand accumulates (after checking
// its captured version is still current, and decrementing its
// pending-consumer counter); a nested Node operand is descended into
// immediately, since intermediate nodes carry no counter of their own.
func (n *Node) Backward(g Expression) error {
	for i, operand := range n.operands {
		if !operand.WithGrad {
			continue
		}
		contribution := n.op.Grad(i, g, n.operands)
		if contribution == nil {
			continue
		}
		if operand.sink != nil {
			if operand.sink.Version() != operand.Version {
				return checks.LeafMutated("leaf variable mutated after graph construction (captured version %d, current %d)",
					operand.Version, operand.sink.Version())
			}
			operand.sink.DecGradCount()
			if err := operand.sink.Contribute(contribution); err != nil {
				return err
			}
			continue
		}
		if inner, ok := operand.Expr.(Backwardable); ok {
			if err := inner.Backward(contribution); err != nil {
				return err
			}
		}
	}
	return nil
}

// Shape materializes a node/expression's full shape as a convenience for
// operators and for tensor.Assign's shape check.
func Shape(e Expression) shape.IndexArray {
	s := make(shape.IndexArray, e.NDim())
	for i := range s {
		s[i] = e.Size(i)
	}
	return s
}

// SameShape fails unless a and b describe the same shape.
func SameShape(a, b Expression) error {
	if a.NDim() != b.NDim() {
		return checks.ShapeMismatch("rank mismatch: %d vs %d", a.NDim(), b.NDim())
	}
	for i := 0; i < a.NDim(); i++ {
		if a.Size(i) != b.Size(i) {
			return checks.ShapeMismatch("shape mismatch at dim %d: %v vs %v", i, Shape(a), Shape(b))
		}
	}
	return nil
}

// broadcastShape computes the elementwise-binary output shape per spec.md
// §4.2: operands must share ndim; each output dim is the max of the two
// operand sizes along that dim.
func broadcastShape(a, b Expression) (shape.IndexArray, error) {
	if a.NDim() != b.NDim() {
		return nil, checks.ShapeMismatch("broadcast requires equal rank: %d vs %d", a.NDim(), b.NDim())
	}
	out := make(shape.IndexArray, a.NDim())
	for i := range out {
		sa, sb := a.Size(i), b.Size(i)
		switch {
		case sa == sb:
			out[i] = sa
		case sa == 1:
			out[i] = sb
		case sb == 1:
			out[i] = sa
		default:
			return nil, checks.ShapeMismatch("cannot broadcast dim %d: %d vs %d", i, sa, sb)
		}
	}
	return out, nil
}

// broadcastIndex maps an output multi-index down to operand e's own index:
// any dim where e's size is 1 reads from index 0 regardless of idx[d].
func broadcastIndex(e Expression, idx shape.IndexArray) shape.IndexArray {
	local := make(shape.IndexArray, e.NDim())
	for i := range local {
		if e.Size(i) == 1 {
			local[i] = 0
		} else {
			local[i] = idx[i]
		}
	}
	return local
}
