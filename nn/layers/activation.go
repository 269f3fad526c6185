package layers

import (
	"sgdnet/tensor"

	"github.com/pkg/errors"
)

// ReLU applies max(0, x) element-wise. It has no parameters.
type ReLU struct {
	lastInput *tensor.Tensor
}

// NewReLU creates a ReLU activation layer.
func NewReLU() *ReLU { return &ReLU{} }

func (r *ReLU) sealed() {}

// Forward returns max(0, x) and caches x.
func (r *ReLU) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	r.lastInput = x.Clone()
	return tensor.ReluPlain(x), nil
}

// Backward passes gradOut through where the cached input was strictly
// positive and zeroes it elsewhere. learningRate is ignored.
func (r *ReLU) Backward(gradOut *tensor.Tensor, _ float64) (*tensor.Tensor, error) {
	input := r.lastInput
	if input == nil {
		return nil, errors.Wrap(ErrNoForward, r.Tag())
	}
	if err := checkLen(r.Tag(), "output gradient", gradOut.Len(), input.Len()); err != nil {
		return nil, err
	}
	gradIn := tensor.New(input.Shape...)
	for i, v := range input.Data {
		if v > 0 {
			gradIn.Data[i] = gradOut.Data[i]
		}
	}
	r.lastInput = nil
	return gradIn, nil
}

func (r *ReLU) Tag() string { return "ReLU" }

// Softmax normalises its input into a probability distribution.
//
// It has no standalone backward pass: when training with cross-entropy the
// network should emit raw logits and let CrossEntropyLoss apply the softmax,
// whose combined gradient is softmax - target.
type Softmax struct {
	lastInput, lastOutput *tensor.Tensor
}

// NewSoftmax creates a Softmax activation layer.
func NewSoftmax() *Softmax { return &Softmax{} }

func (s *Softmax) sealed() {}

// Forward returns the max-shifted softmax of x and caches input and output.
func (s *Softmax) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := tensor.Softmax(x)
	s.lastInput = x.Clone()
	s.lastOutput = out.Clone()
	return out, nil
}

// Backward always fails with ErrUnsupported.
func (s *Softmax) Backward(_ *tensor.Tensor, _ float64) (*tensor.Tensor, error) {
	return nil, errors.Wrap(ErrUnsupported, "Softmax: standalone backward; use raw logits with CrossEntropyLoss")
}

// Output returns the probabilities cached by the last Forward, or nil.
func (s *Softmax) Output() *tensor.Tensor {
	if s.lastOutput == nil {
		return nil
	}
	return s.lastOutput.Clone()
}

func (s *Softmax) Tag() string { return "Softmax" }
