package nn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/nn"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

func TestLinearForwardShapeAndParameters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	lin := nn.NewLinear(3, 2, rng)
	lin.Weight.Fill(1)
	lin.Bias.Fill(0)

	x, err := tensor.FromData([]float64{1, 2, 3}, shape.Size{1, 3}, false)
	require.NoError(t, err)

	out, err := lin.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, shape.Size{1, 2}, out.Shape())
	assert.InDelta(t, 6.0, out.At(0, 0), 1e-9)
	assert.InDelta(t, 6.0, out.At(0, 1), 1e-9)

	params := lin.Parameters()
	assert.Contains(t, params, "weight")
	assert.Contains(t, params, "bias")
}

func TestLinearWithReLUClampsNegatives(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	lin := nn.NewLinearWithReLU(2, 1, rng)
	lin.Weight.Fill(-1)
	lin.Bias.Fill(0)

	x, err := tensor.FromData([]float64{1, 1}, shape.Size{1, 2}, false)
	require.NoError(t, err)

	out, err := lin.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, float64(0), out.At(0, 0), "relu must clamp the negative pre-activation to 0")
}

func TestLinearBackwardPopulatesWeightGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	lin := nn.NewLinear(2, 2, rng)
	lin.Weight.Fill(0.5)
	lin.Bias.Fill(0)

	x, err := tensor.FromData([]float64{1, 2}, shape.Size{1, 2}, false)
	require.NoError(t, err)

	out, err := lin.Forward(x)
	require.NoError(t, err)
	loss, err := tensor.Materialize(expr.Mean(expr.Mean(out, 1), 0))
	require.NoError(t, err)
	require.NoError(t, loss.Backward())

	gw, err := lin.Weight.Grad()
	require.NoError(t, err)
	for i := 0; i < gw.Numel(); i++ {
		assert.NotEqual(t, 0.0, gw.At(i/2, i%2))
	}
}

func TestCrossEntropyPrefersCorrectClass(t *testing.T) {
	ce := nn.NewCrossEntropy()
	logits, err := tensor.FromData([]float64{5, 0, 0, 0, 0, 5}, shape.Size{2, 3}, true)
	require.NoError(t, err)

	loss, err := ce.Forward(logits, []int{0, 2})
	require.NoError(t, err)
	require.Equal(t, shape.Size{}, loss.Shape())
	v, err := loss.Item()
	require.NoError(t, err)
	assert.Less(t, v, -math.Log(0.9), "confident correct predictions should yield low loss")
}
