package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

func TestViewsShareStorage(t *testing.T) {
	x, err := tensor.FromData([]float64{1, 2, 3, 4, 5, 6}, shape.Size{2, 3}, false)
	require.NoError(t, err)

	row, err := x.Slice(0, 1)
	require.NoError(t, err)
	assert.Equal(t, shape.Size{3}, row.Shape())
	assert.Equal(t, float64(4), row.At(0))

	row.Set(99, 0)
	assert.Equal(t, float64(99), x.At(1, 0), "Slice must be a non-copying view sharing storage")
}

func TestTransposePermuteAndView(t *testing.T) {
	x, err := tensor.FromData([]float64{1, 2, 3, 4, 5, 6}, shape.Size{2, 3}, false)
	require.NoError(t, err)

	xt, err := x.Transpose(0, 1)
	require.NoError(t, err)
	assert.Equal(t, shape.Size{3, 2}, xt.Shape())
	assert.Equal(t, float64(4), xt.At(0, 1))

	_, err = x.View(shape.Size{6})
	require.NoError(t, err)

	_, err = xt.View(shape.Size{6})
	assert.Error(t, err, "View on a non-contiguous tensor (post-transpose) must fail")
}

func TestSqueezeUnsqueeze(t *testing.T) {
	x := tensor.Zeros(1, 3, 1)
	sq, err := x.Squeeze(0)
	require.NoError(t, err)
	assert.Equal(t, shape.Size{3, 1}, sq.Shape())

	un, err := sq.Unsqueeze(0)
	require.NoError(t, err)
	assert.Equal(t, shape.Size{1, 3, 1}, un.Shape())
}

func TestViewGradientAliasesSourceGrad(t *testing.T) {
	x := tensor.New(shape.Size{2, 2}, true)
	x.Fill(1)
	row, err := x.Slice(0, 0)
	require.NoError(t, err)

	loss, err := tensor.Materialize(expr.Mean(row, 0))
	require.NoError(t, err)
	require.NoError(t, loss.Backward())

	gx, err := x.Grad()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, gx.At(0, 0), 1e-9)
	assert.InDelta(t, 0.5, gx.At(0, 1), 1e-9)
	assert.InDelta(t, 0.0, gx.At(1, 0), 1e-9)
}

func TestAssignOnNonRequiresGradLeafJustWrites(t *testing.T) {
	x, err := tensor.FromData([]float64{1, 2}, shape.Size{2}, false)
	require.NoError(t, err)
	y, err := tensor.FromData([]float64{10, 20}, shape.Size{2}, false)
	require.NoError(t, err)

	require.NoError(t, x.Assign(expr.Add(x, y)))
	assert.Equal(t, float64(11), x.At(0))
	assert.Equal(t, float64(22), x.At(1))
}

func TestBroadcastAddReducesGradientOverBroadcastDims(t *testing.T) {
	// bias (1,3) broadcast against x (2,3); gradient back to bias must sum
	// over the broadcast batch dim per spec.md invariant 4.
	x, err := tensor.FromData([]float64{1, 2, 3, 4, 5, 6}, shape.Size{2, 3}, false)
	require.NoError(t, err)
	bias := tensor.New(shape.Size{1, 3}, true)
	bias.Fill(0)

	out, err := tensor.Materialize(expr.Add(x, bias))
	require.NoError(t, err)
	loss, err := tensor.Materialize(expr.Mean(expr.Mean(out, 1), 0))
	require.NoError(t, err)
	require.NoError(t, loss.Backward())

	gb, err := bias.Grad()
	require.NoError(t, err)
	// Each of out's 6 cells carries weight 1/6; bias[0][j] is read by both
	// rows, so its gradient is 2 * 1/6 = 1/3 for every j.
	for j := 0; j < 3; j++ {
		assert.InDelta(t, 1.0/3, gb.At(0, j), 1e-9)
	}
}

func TestItemRequiresSingleton(t *testing.T) {
	x := tensor.Zeros(2, 2)
	_, err := x.Item()
	assert.Error(t, err)

	s := tensor.Zeros(1, 1)
	v, err := s.Item()
	require.NoError(t, err)
	assert.Equal(t, float64(0), v)
}
