package tensor

import (
	"math"
	"math/rand"

	"github.com/Hirogava/tensorgrad/pkg/shape"
)

// Zeros allocates a zero-filled, non-differentiable leaf tensor.
func Zeros(shp ...int) *Tensor {
	return New(shape.Size(shp), false)
}

// Ones allocates a leaf tensor filled with 1.
func Ones(shp ...int) *Tensor {
	t := New(shape.Size(shp), false)
	for i := 0; i < t.Numel(); i++ {
		t.store.SetNoVersion(i, 1)
	}
	return t
}

// Fill writes the same value into every cell of a leaf tensor, used by
// initializers below and by tests building literal fixtures.
func (t *Tensor) Fill(v float64) {
	for i := 0; i < t.Numel(); i++ {
		t.store.SetNoVersion(i, v)
	}
}

// InitUniform fills data with samples from Uniform(lo, hi), the
// "initialize ... from ... uniform" external interface spec.md §6 names.
func InitUniform(data []float64, lo, hi float64, rng *rand.Rand) {
	for i := range data {
		data[i] = lo + rng.Float64()*(hi-lo)
	}
}

// InitNormal fills data with samples from Normal(mean, std).
func InitNormal(data []float64, mean, std float64, rng *rand.Rand) {
	for i := range data {
		data[i] = mean + rng.NormFloat64()*std
	}
}

// InitKaiming fills data with He/Kaiming-scaled normal samples
// (std = sqrt(2/fanIn)), the initializer Conv2d/Linear parameters use.
func InitKaiming(data []float64, fanIn int, rng *rand.Rand) {
	std := math.Sqrt(2.0 / float64(fanIn))
	InitNormal(data, 0, std, rng)
}

// NewParam allocates a requires_grad leaf of shp, initialized in place by
// initFunc — the construction pattern pkg/nn's modules use for weight and
// bias tensors.
func NewParam(shp shape.Size, initFunc func([]float64)) *Tensor {
	t := New(shp, true)
	buf := make([]float64, t.Numel())
	initFunc(buf)
	for i, v := range buf {
		t.store.SetNoVersion(i, v)
	}
	return t
}
