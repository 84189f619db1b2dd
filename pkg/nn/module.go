// Package nn composes pkg/expr's lazy operators into the trainable modules
// spec.md §4.4 names, grounded in the teacher's pkg/layers.Dense (weight +
// bias parameter pair, matmul-then-broadcast-add forward) generalized to
// the tensor/expr split and extended with Conv2d/MaxPool2d/CrossEntropy.
package nn

import "github.com/Hirogava/tensorgrad/pkg/tensor"

// Module is the contract every network component satisfies: a name-keyed
// mapping of its trainable parameters, the kind of map pkg/optim's NewBase
// merges. Each concrete module also has its own Forward method; Forward is
// not part of this interface.
type Module interface {
	Parameters() map[string]*tensor.Tensor
}
