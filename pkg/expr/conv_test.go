package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

func TestImg2ColForwardDecomposition(t *testing.T) {
	x, err := tensor.FromData([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, shape.Size{1, 1, 3, 3}, false)
	require.NoError(t, err)

	out, err := tensor.Materialize(expr.Img2Col(x, 2, 2, 1, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, shape.Size{4, 4}, out.Shape())

	want := [][]float64{
		{1, 2, 4, 5},
		{2, 3, 5, 6},
		{4, 5, 7, 8},
		{5, 6, 8, 9},
	}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			assert.Equal(t, want[r][c], out.At(r, c), "cell (%d,%d)", r, c)
		}
	}
}

func TestImg2ColBackwardSumsOverlappingWindows(t *testing.T) {
	x, err := tensor.FromData([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, shape.Size{1, 1, 3, 3}, true)
	require.NoError(t, err)

	out, err := tensor.Materialize(expr.Img2Col(x, 2, 2, 1, 1, 0, 0))
	require.NoError(t, err)
	loss, err := tensor.Materialize(expr.Mean(expr.Mean(out, 1), 0))
	require.NoError(t, err)
	require.NoError(t, loss.Backward())

	gx, err := x.Grad()
	require.NoError(t, err)
	// Each output cell carries weight 1/16; gradient at each input pixel is
	// (number of covering 2x2 windows)/16 - the classic convolution overlap
	// pyramid for a 3x3 image with a 2x2 stride-1 kernel.
	want := [][]float64{
		{1.0 / 16, 2.0 / 16, 1.0 / 16},
		{2.0 / 16, 4.0 / 16, 2.0 / 16},
		{1.0 / 16, 2.0 / 16, 1.0 / 16},
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, want[i][j], gx.At(0, 0, i, j), 1e-9, "cell (%d,%d)", i, j)
		}
	}
}

func TestMaxPool2dForwardAndGradRouting(t *testing.T) {
	data := []float64{
		1, 3, 2, 4,
		5, 6, 7, 8,
		9, 10, 2, 1,
		3, 4, 5, 6,
	}
	x, err := tensor.FromData(data, shape.Size{1, 1, 4, 4}, true)
	require.NoError(t, err)

	out, err := tensor.Materialize(expr.MaxPool2d(x, 2, 2, 2, 2, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, shape.Size{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, float64(6), out.At(0, 0, 0, 0))
	assert.Equal(t, float64(8), out.At(0, 0, 0, 1))
	assert.Equal(t, float64(10), out.At(0, 0, 1, 0))
	assert.Equal(t, float64(6), out.At(0, 0, 1, 1))

	loss, err := tensor.Materialize(expr.Mean(expr.Mean(out, 3), 2))
	require.NoError(t, err)
	require.NoError(t, loss.Backward())

	gx, err := x.Grad()
	require.NoError(t, err)
	want := [][]float64{
		{0, 0, 0, 0},
		{0, 0.25, 0, 0.25},
		{0, 0.25, 0, 0},
		{0, 0, 0, 0.25},
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.InDelta(t, want[i][j], gx.At(0, 0, i, j), 1e-9, "cell (%d,%d)", i, j)
		}
	}
}
