package expr

import "github.com/Hirogava/tensorgrad/pkg/shape"

// identityOp passes a single operand through unchanged, mirroring
// original_source's op::Identity — the operator a bare TensorImpl is
// conceptually assigned through. pkg/tensor wraps a plain Tensor-to-Tensor
// assignment (dest = other) in Identity so it has a Node to store as
// dest's grad_fn, uniformly with every other combinator's output.
type identityOp struct{}

func (identityOp) NDim(ops []Operand) int           { return ops[0].Expr.NDim() }
func (identityOp) Size(d int, ops []Operand) int    { return ops[0].Expr.Size(d) }
func (identityOp) AllowBroadcast() bool             { return false }
func (identityOp) Eval(idx shape.IndexArray, ops []Operand) float64 {
	return ops[0].Expr.Eval(idx)
}
func (identityOp) Grad(i int, g Expression, ops []Operand) Expression {
	return g
}

// Identity wraps e so it can be stored as a tensor's grad_fn even when e is
// itself a bare leaf expression rather than an already-composed Node.
func Identity(e Expression) *Node {
	return NewNode(identityOp{}, Capture(e, true))
}
