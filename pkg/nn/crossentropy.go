package nn

import (
	"github.com/Hirogava/tensorgrad/pkg/expr"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

// CrossEntropy implements spec.md §4.4's CrossEntropy: forward(logits,
// labels) = mean(nll_loss(log_softmax(logits), labels)), a scalar loss
// ready for an argument-less backward() call.
type CrossEntropy struct{}

func NewCrossEntropy() *CrossEntropy { return &CrossEntropy{} }

// Forward computes the mean negative log likelihood over the batch.
// logits is (N, C); labels has length N.
func (c *CrossEntropy) Forward(logits *tensor.Tensor, labels []int) (*tensor.Tensor, error) {
	lastDim := logits.NDim() - 1
	logProbs := expr.LogSoftmax(logits, lastDim)
	perExample := expr.NLLLoss(logProbs, labels)
	return tensor.Materialize(expr.Mean(perExample, 0))
}

func (c *CrossEntropy) Parameters() map[string]*tensor.Tensor { return nil }
