package expr_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

func TestMeanForwardAndBackward(t *testing.T) {
	x, err := tensor.FromData([]float64{1, 2, 3, 4}, shape.Size{2, 2}, true)
	require.NoError(t, err)

	out, err := tensor.Materialize(expr.Mean(x, 1))
	require.NoError(t, err)
	assert.Equal(t, shape.Size{2}, out.Shape())
	assert.Equal(t, 1.5, out.At(0))
	assert.Equal(t, 3.5, out.At(1))

	loss, err := tensor.Materialize(expr.Mean(out, 0))
	require.NoError(t, err)
	require.NoError(t, loss.Backward())

	gx, err := x.Grad()
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 0.25, gx.At(i/2, i%2), 1e-9)
	}
}

func TestMaxForwardAndArgmaxRouting(t *testing.T) {
	x, err := tensor.FromData([]float64{1, 5, 3, 9, 2, 0}, shape.Size{2, 3}, true)
	require.NoError(t, err)

	out, err := tensor.Materialize(expr.Max(x, 1))
	require.NoError(t, err)
	assert.Equal(t, float64(5), out.At(0))
	assert.Equal(t, float64(9), out.At(1))

	loss, err := tensor.Materialize(expr.Mean(out, 0))
	require.NoError(t, err)
	require.NoError(t, loss.Backward())

	gx, err := x.Grad()
	require.NoError(t, err)
	want := []float64{0, 0.5, 0, 0.5, 0, 0}
	for i := 0; i < 6; i++ {
		assert.InDelta(t, want[i], gx.At(i/3, i%3), 1e-9)
	}
}

func TestArgmaxReturnsIndexOfMax(t *testing.T) {
	x, err := tensor.FromData([]float64{1, 5, 3}, shape.Size{1, 3}, true)
	require.NoError(t, err)
	out, err := tensor.Materialize(expr.Argmax(x, 1))
	require.NoError(t, err)
	assert.Equal(t, float64(1), out.At(0))
}

func TestLogSoftmaxAndSoftmaxComposeCorrectly(t *testing.T) {
	x, err := tensor.FromData([]float64{1, 2, 3}, shape.Size{1, 3}, false)
	require.NoError(t, err)

	ls, err := tensor.Materialize(expr.LogSoftmax(x, 1))
	require.NoError(t, err)
	sm, err := tensor.Materialize(expr.Softmax(x, 1))
	require.NoError(t, err)

	var sum float64
	for i := 0; i < 3; i++ {
		assert.InDelta(t, math.Exp(ls.At(0, i)), sm.At(0, i), 1e-9)
		sum += sm.At(0, i)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestNLLLossPicksOutTargetClass(t *testing.T) {
	logProbs, err := tensor.FromData(
		[]float64{math.Log(0.7), math.Log(0.2), math.Log(0.1), math.Log(0.1), math.Log(0.2), math.Log(0.7)},
		shape.Size{2, 3}, true)
	require.NoError(t, err)

	out, err := tensor.Materialize(expr.NLLLoss(logProbs, []int{0, 2}))
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.7), out.At(0), 1e-9)
	assert.InDelta(t, -math.Log(0.7), out.At(1), 1e-9)

	loss, err := tensor.Materialize(expr.Mean(out, 0))
	require.NoError(t, err)
	require.NoError(t, loss.Backward())

	g, err := logProbs.Grad()
	require.NoError(t, err)
	assert.InDelta(t, -0.5, g.At(0, 0), 1e-9)
	assert.InDelta(t, 0.0, g.At(0, 1), 1e-9)
	assert.InDelta(t, -0.5, g.At(1, 2), 1e-9)
}
