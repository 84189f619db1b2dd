package optim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hirogava/tensorgrad/pkg/optim"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

// seedGrad accumulates grad directly into p via Tensor.Contribute (the same
// exported entrypoint a custom Op's backward traversal would use), the
// sanctioned way to populate a parameter's gradient outside of running a
// full forward+backward pass.
func seedGrad(t *testing.T, p *tensor.Tensor, values []float64) {
	t.Helper()
	g, err := tensor.Constant(values, shape.Size{len(values)})
	require.NoError(t, err)
	require.NoError(t, p.Contribute(g))
}

func TestSGDStepWritesDirectlyToStorage(t *testing.T) {
	p, err := tensor.FromData([]float64{1, 2, 3}, shape.Size{3}, true)
	require.NoError(t, err)
	seedGrad(t, p, []float64{1, 1, 1})

	v0 := p.Version()
	sgd := optim.NewSGD(0.1, map[string]*tensor.Tensor{"w": p})
	sgd.Step()

	assert.InDelta(t, 0.9, p.At(0), 1e-9)
	assert.InDelta(t, 1.9, p.At(1), 1e-9)
	assert.InDelta(t, 2.9, p.At(2), 1e-9)
	assert.Equal(t, v0, p.Version(), "optimizer Step must not bump the parameter's version")
}

func TestSGDZeroGradClearsGradStorage(t *testing.T) {
	p, err := tensor.FromData([]float64{1, 2}, shape.Size{2}, true)
	require.NoError(t, err)
	seedGrad(t, p, []float64{5, 5})

	sgd := optim.NewSGD(0.1, map[string]*tensor.Tensor{"w": p})
	sgd.ZeroGrad()

	g, err := p.Grad()
	require.NoError(t, err)
	assert.Equal(t, float64(0), g.At(0))
	assert.Equal(t, float64(0), g.At(1))
}

func TestSGDWithMomentumFirstStepEqualsGradient(t *testing.T) {
	p, err := tensor.FromData([]float64{1}, shape.Size{1}, true)
	require.NoError(t, err)
	seedGrad(t, p, []float64{2})

	mo := optim.NewSGDWithMomentum(0.5, 0.9, map[string]*tensor.Tensor{"w": p})
	mo.Step()
	// running mean on first step equals the raw gradient: param -= lr*grad.
	assert.InDelta(t, 1-0.5*2, p.At(0), 1e-9)
}

func TestSGDWithMomentumAccumulatesExponentialMovingAverage(t *testing.T) {
	p, err := tensor.FromData([]float64{0}, shape.Size{1}, true)
	require.NoError(t, err)

	mo := optim.NewSGDWithMomentum(1.0, 0.5, map[string]*tensor.Tensor{"w": p})

	seedGrad(t, p, []float64{2})
	mo.Step() // m = 2, param = 0 - 1*2 = -2
	assert.InDelta(t, -2.0, p.At(0), 1e-9)

	mo.ZeroGrad()
	seedGrad(t, p, []float64{4})
	mo.Step() // m = 0.5*2 + 0.5*4 = 3, param = -2 - 1*3 = -5
	assert.InDelta(t, -5.0, p.At(0), 1e-9)
}

func TestBaseMergesMultipleParameterSetsWithCollisionAvoidance(t *testing.T) {
	w1, err := tensor.FromData([]float64{1}, shape.Size{1}, true)
	require.NoError(t, err)
	w2, err := tensor.FromData([]float64{2}, shape.Size{1}, true)
	require.NoError(t, err)

	sgd := optim.NewSGD(0.1,
		map[string]*tensor.Tensor{"weight": w1},
		map[string]*tensor.Tensor{"weight": w2},
	)
	assert.Len(t, sgd.Params, 2, "same-named params from different sets must not collide")
}
