// Package optim implements spec.md §4.5's optimizers, grounded in the
// teacher's pkg/optimizers package (Optimizer interface, SGD, Momentum)
// adapted to walk tensor.Tensor's flat data/grad storage directly instead
// of a graph.Node's Data/Grad slices.
package optim

import (
	"strconv"

	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

// Optimizer is the contract every optimizer below satisfies.
type Optimizer interface {
	Step()
	ZeroGrad()
}

// Base holds the name-keyed parameter mapping spec.md §4.4's Module.
// Parameters() returns; zero_grad() writes zeros into every parameter's
// gradient storage.
type Base struct {
	Params map[string]*tensor.Tensor
}

// NewBase collects params (possibly nil, skipped) from one or more
// modules' Parameters() maps into a single flat mapping.
func NewBase(paramSets ...map[string]*tensor.Tensor) Base {
	merged := make(map[string]*tensor.Tensor)
	for i, set := range paramSets {
		for name, p := range set {
			merged[keyFor(i, name)] = p
		}
	}
	return Base{Params: merged}
}

func keyFor(setIndex int, name string) string {
	if setIndex == 0 {
		return name
	}
	return name + "#" + strconv.Itoa(setIndex)
}

// ZeroGrad writes zeros into every parameter's gradient storage.
func (b Base) ZeroGrad() {
	for _, p := range b.Params {
		p.ZeroGrad()
	}
}
