// Matrix and batched-matrix multiplication, grounded in spec.md §4.2/§4.3's
// matmul/batch_matmul rows and the teacher's pkg/matrix/matrix.go Multiply.
package expr

import "github.com/Hirogava/tensorgrad/pkg/shape"

type matmulOp struct{}

func batchIdx(idx shape.IndexArray) shape.IndexArray {
	return idx[:len(idx)-2]
}

func withTail(batch shape.IndexArray, a, b int) shape.IndexArray {
	out := make(shape.IndexArray, len(batch)+2)
	copy(out, batch)
	out[len(batch)] = a
	out[len(batch)+1] = b
	return out
}

func (op matmulOp) NDim(operands []Operand) int { return operands[0].Expr.NDim() }
func (op matmulOp) Size(d int, operands []Operand) int {
	a, b := operands[0].Expr, operands[1].Expr
	n := a.NDim()
	switch {
	case d == n-2:
		return a.Size(d)
	case d == n-1:
		return b.Size(d)
	default:
		return a.Size(d)
	}
}
func (op matmulOp) AllowBroadcast() bool { return false }

func (op matmulOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	a, b := operands[0].Expr, operands[1].Expr
	batch := batchIdx(idx)
	n := len(idx)
	i, j := idx[n-2], idx[n-1]
	k := a.Size(a.NDim() - 1)
	sum := 0.0
	for p := 0; p < k; p++ {
		sum += a.Eval(withTail(batch, i, p)) * b.Eval(withTail(batch, p, j))
	}
	return sum
}

func (op matmulOp) Grad(operandIndex int, g Expression, operands []Operand) Expression {
	a, b := operands[0].Expr, operands[1].Expr
	if operandIndex == 0 {
		return &matmulGradANode{g: g, a: a, b: b}
	}
	return &matmulGradBNode{g: g, a: a, b: b}
}

// matmulGradANode computes dA = g . Bᵀ (per-batch): dA[..,i,p] = sum_j g[..,i,j] * B[..,p,j].
// Its own shape is exactly A's shape.
type matmulGradANode struct {
	g    Expression
	a, b Expression
}

func (n *matmulGradANode) NDim() int          { return n.a.NDim() }
func (n *matmulGradANode) Size(d int) int     { return n.a.Size(d) }
func (n *matmulGradANode) RequiresGrad() bool { return false }
func (n *matmulGradANode) Eval(idx shape.IndexArray) float64 {
	batch := batchIdx(idx)
	l := len(idx)
	i, p := idx[l-2], idx[l-1]
	nCols := n.b.Size(n.b.NDim() - 1)
	sum := 0.0
	for j := 0; j < nCols; j++ {
		sum += n.g.Eval(withTail(batch, i, j)) * n.b.Eval(withTail(batch, p, j))
	}
	return sum
}

// matmulGradBNode computes dB = Aᵀ . g (per-batch): dB[..,p,j] = sum_i A[..,i,p] * g[..,i,j].
// Its own shape is exactly B's shape.
type matmulGradBNode struct {
	g    Expression
	a, b Expression
}

func (n *matmulGradBNode) NDim() int          { return n.b.NDim() }
func (n *matmulGradBNode) Size(d int) int     { return n.b.Size(d) }
func (n *matmulGradBNode) RequiresGrad() bool { return false }
func (n *matmulGradBNode) Eval(idx shape.IndexArray) float64 {
	batch := batchIdx(idx)
	l := len(idx)
	p, j := idx[l-2], idx[l-1]
	mRows := n.a.Size(n.a.NDim() - 2)
	sum := 0.0
	for i := 0; i < mRows; i++ {
		sum += n.a.Eval(withTail(batch, i, p)) * n.g.Eval(withTail(batch, i, j))
	}
	return sum
}

// MatMul computes A(m,k) . B(k,n) -> (m,n).
func MatMul(a, b Expression) *Node {
	return NewNode(matmulOp{}, Capture(a, true), Capture(b, true))
}

// BatchMatMul computes A(b,m,k) . B(b,k,n) -> (b,m,n); same rule as MatMul,
// generalized to any number of leading batch dims.
func BatchMatMul(a, b Expression) *Node {
	return NewNode(matmulOp{}, Capture(a, true), Capture(b, true))
}

type transposeLastOp struct{}

func (op transposeLastOp) NDim(operands []Operand) int { return operands[0].Expr.NDim() }
func (op transposeLastOp) Size(d int, operands []Operand) int {
	x := operands[0].Expr
	n := x.NDim()
	switch d {
	case n - 2:
		return x.Size(n - 1)
	case n - 1:
		return x.Size(n - 2)
	default:
		return x.Size(d)
	}
}
func (op transposeLastOp) AllowBroadcast() bool { return false }
func (op transposeLastOp) Eval(idx shape.IndexArray, operands []Operand) float64 {
	x := operands[0].Expr
	n := len(idx)
	swapped := idx.Clone()
	swapped[n-2], swapped[n-1] = idx[n-1], idx[n-2]
	return x.Eval(swapped)
}
func (op transposeLastOp) Grad(operandIndex int, g Expression, operands []Operand) Expression {
	if operandIndex != 0 {
		return nil
	}
	return &transposeLastGradNode{g: g, x: operands[0].Expr}
}

// transposeLastGradNode's own shape is exactly x's shape (the transpose is
// its own inverse, so the gradient wrt x has x's shape, not g's).
type transposeLastGradNode struct {
	g Expression
	x Expression
}

func (n *transposeLastGradNode) NDim() int          { return n.x.NDim() }
func (n *transposeLastGradNode) Size(d int) int     { return n.x.Size(d) }
func (n *transposeLastGradNode) RequiresGrad() bool { return false }
func (n *transposeLastGradNode) Eval(idx shape.IndexArray) float64 {
	l := len(idx)
	swapped := idx.Clone()
	swapped[l-2], swapped[l-1] = idx[l-1], idx[l-2]
	return n.g.Eval(swapped)
}

// MatrixTranspose swaps the last two dims of x, lazily.
func MatrixTranspose(x Expression) *Node {
	return NewNode(transposeLastOp{}, Capture(x, true))
}

// BatchMatrixTranspose is an alias for MatrixTranspose: the rule is the
// same regardless of how many leading batch dims precede the matrix dims.
func BatchMatrixTranspose(x Expression) *Node {
	return NewNode(transposeLastOp{}, Capture(x, true))
}
