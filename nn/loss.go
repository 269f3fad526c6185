package nn

import (
	"math"

	"sgdnet/nn/layers"
	"sgdnet/tensor"

	"github.com/pkg/errors"
)

// Loss maps a (prediction, target) pair of equal-length vectors to a scalar
// loss and to the gradient of that loss with respect to the prediction.
type Loss interface {
	Compute(predictions, targets *tensor.Tensor) (float64, error)
	Derivative(predictions, targets *tensor.Tensor) (*tensor.Tensor, error)
}

// Epsilon keeps ln(softmax+Epsilon) finite when a probability underflows to 0.
const Epsilon = 1e-9

// CrossEntropyLoss applies softmax to raw logits, then computes
// -Σ target·ln(softmax + Epsilon).
type CrossEntropyLoss struct{}

// NewCrossEntropyLoss returns the softmax cross-entropy loss.
func NewCrossEntropyLoss() *CrossEntropyLoss { return &CrossEntropyLoss{} }

// Compute returns the cross-entropy of softmax(predictions) against targets.
func (c *CrossEntropyLoss) Compute(predictions, targets *tensor.Tensor) (float64, error) {
	if err := checkPair(predictions, targets); err != nil {
		return 0, err
	}
	probs := tensor.Softmax(predictions)
	loss := 0.0
	for i, p := range probs.Data {
		loss -= targets.Data[i] * math.Log(p+Epsilon)
	}
	return loss, nil
}

// Derivative computes the gradient of the cross-entropy loss with softmax.
// grad = (softmax_output - one_hot_label); valid for one-hot targets when this
// is the final loss stage.
func (c *CrossEntropyLoss) Derivative(predictions, targets *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkPair(predictions, targets); err != nil {
		return nil, err
	}
	grad := tensor.Softmax(predictions)
	for i := range grad.Data {
		grad.Data[i] -= targets.Data[i]
	}
	return grad, nil
}

func checkPair(predictions, targets *tensor.Tensor) error {
	if predictions.Len() != targets.Len() {
		return errors.Wrapf(layers.ErrShapeMismatch, "loss: %d predictions vs %d targets",
			predictions.Len(), targets.Len())
	}
	return nil
}
