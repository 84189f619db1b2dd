package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

func mat(t *testing.T, rows, cols int, data []float64, requiresGrad bool) *tensor.Tensor {
	t.Helper()
	ten, err := tensor.FromData(data, shape.Size{rows, cols}, requiresGrad)
	require.NoError(t, err)
	return ten
}

func TestMatMulForward(t *testing.T) {
	a := mat(t, 2, 3, []float64{1, 2, 3, 4, 5, 6}, false)
	b := mat(t, 3, 2, []float64{7, 8, 9, 10, 11, 12}, false)
	out, err := tensor.Materialize(expr.MatMul(a, b))
	require.NoError(t, err)
	assert.Equal(t, float64(58), out.At(0, 0))
	assert.Equal(t, float64(64), out.At(0, 1))
	assert.Equal(t, float64(139), out.At(1, 0))
	assert.Equal(t, float64(154), out.At(1, 1))
}

func TestMatMulWithTransposeBGrounded(t *testing.T) {
	a := mat(t, 2, 3, []float64{1, 2, 3, 4, 5, 6}, false)
	b := mat(t, 2, 3, []float64{7, 8, 9, 10, 11, 12}, false)
	out, err := tensor.Materialize(expr.MatMul(a, expr.MatrixTranspose(b)))
	require.NoError(t, err)
	assert.Equal(t, float64(50), out.At(0, 0))
	assert.Equal(t, float64(68), out.At(0, 1))
	assert.Equal(t, float64(122), out.At(1, 0))
	assert.Equal(t, float64(167), out.At(1, 1))
}

func TestMatMulBackwardAccumulatesFullShapeGradients(t *testing.T) {
	a := mat(t, 2, 2, []float64{1, 2, 3, 4}, true)
	b := mat(t, 2, 2, []float64{5, 6, 7, 8}, true)

	out, err := tensor.Materialize(expr.MatMul(a, b))
	require.NoError(t, err)
	sum, err := tensor.Materialize(expr.Mean(expr.Mean(out, 1), 0))
	require.NoError(t, err)
	require.NoError(t, sum.Backward())

	ga, err := a.Grad()
	require.NoError(t, err)
	gb, err := b.Grad()
	require.NoError(t, err)

	// Every cell of A's grad must be populated (no silent zero rows from a
	// broken Size() on the grad node), and similarly for B.
	for i := 0; i < ga.Numel(); i++ {
		assert.NotEqual(t, 0.0, ga.At(i/2, i%2), "A grad cell %d is zero", i)
	}
	for i := 0; i < gb.Numel(); i++ {
		assert.NotEqual(t, 0.0, gb.At(i/2, i%2), "B grad cell %d is zero", i)
	}
}

func TestMatrixTransposeSwapsLastTwoDims(t *testing.T) {
	a := mat(t, 2, 3, []float64{1, 2, 3, 4, 5, 6}, false)
	out, err := tensor.Materialize(expr.MatrixTranspose(a))
	require.NoError(t, err)
	assert.Equal(t, shape.Size{3, 2}, out.Shape())
	assert.Equal(t, float64(4), out.At(0, 1))
	assert.Equal(t, float64(3), out.At(2, 0))
}
