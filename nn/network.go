// Package nn composes layers and a loss function into a network trained by
// per-sample stochastic gradient descent.
package nn

import (
	"sgdnet/nn/layers"
	"sgdnet/tensor"

	"github.com/pkg/errors"
)

var (
	// ErrFrozen is returned by Add once training has started.
	ErrFrozen = errors.New("network architecture is frozen")
	// ErrEmptyNetwork is returned when a network without layers is run.
	ErrEmptyNetwork = errors.New("network has no layers")
)

// Network chains layers in insertion order and trains them against one loss.
//
// A Network is not safe for concurrent use: Forward caches per-layer state
// and Train mutates Dense parameters in place.
type Network struct {
	layers       []layers.Layer
	loss         Loss
	learningRate float64
	frozen       bool
}

// NewNetwork creates a network with the given learning rate, loss and
// initial layers.
func NewNetwork(learningRate float64, loss Loss, ls ...layers.Layer) *Network {
	if loss == nil {
		panic("NewNetwork: loss must not be nil")
	}
	return &Network{
		layers:       append([]layers.Layer(nil), ls...),
		loss:         loss,
		learningRate: learningRate,
	}
}

// Add appends a layer. It fails with ErrFrozen after the first training step.
func (n *Network) Add(l layers.Layer) error {
	if n.frozen {
		return errors.Wrapf(ErrFrozen, "cannot add %s", l.Tag())
	}
	n.layers = append(n.layers, l)
	return nil
}

// Forward applies each layer in sequence and returns the last layer's output.
func (n *Network) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(n.layers) == 0 {
		return nil, ErrEmptyNetwork
	}
	out := x
	var err error
	for i, layer := range n.layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, errors.Wrapf(err, "forward layer %d", i)
		}
	}
	return out, nil
}

// checkTrainable rejects networks holding a Softmax layer, which has no
// backward pass. It runs before any layer updates its parameters.
func (n *Network) checkTrainable() error {
	if len(n.layers) == 0 {
		return ErrEmptyNetwork
	}
	for i, l := range n.layers {
		if _, ok := l.(*layers.Softmax); ok {
			return errors.Wrapf(layers.ErrUnsupported, "layer %d: %s cannot be trained; emit raw logits for the loss", i, l.Tag())
		}
	}
	return nil
}

// Backward applies Backward in reverse order, starting from the gradient of
// the loss with respect to the network output. Each layer must have seen
// exactly one Forward since its last Backward. Backward freezes the
// architecture. A network containing a Softmax fails with ErrUnsupported
// before any parameter changes.
func (n *Network) Backward(grad *tensor.Tensor, learningRate float64) (*tensor.Tensor, error) {
	if err := n.checkTrainable(); err != nil {
		return nil, err
	}
	n.frozen = true
	var err error
	for i := len(n.layers) - 1; i >= 0; i-- {
		grad, err = n.layers[i].Backward(grad, learningRate)
		if err != nil {
			return nil, errors.Wrapf(err, "backward layer %d", i)
		}
	}
	return grad, nil
}

// Train runs one forward pass, one loss derivative and one full backward
// sweep using the network's learning rate. It returns the sample loss.
func (n *Network) Train(input, target *tensor.Tensor) (float64, error) {
	return n.Step(input, target, n.learningRate)
}

// Step is Train with an explicit learning rate.
func (n *Network) Step(input, target *tensor.Tensor, learningRate float64) (float64, error) {
	if err := n.checkTrainable(); err != nil {
		return 0, err
	}
	n.frozen = true
	out, err := n.Forward(input)
	if err != nil {
		return 0, err
	}
	loss, err := n.loss.Compute(out, target)
	if err != nil {
		return 0, err
	}
	grad, err := n.loss.Derivative(out, target)
	if err != nil {
		return 0, err
	}
	if _, err := n.Backward(grad, learningRate); err != nil {
		return 0, err
	}
	return loss, nil
}

// Predict returns the index of the largest output; ties go to the lowest index.
func (n *Network) Predict(input *tensor.Tensor) (int, error) {
	out, err := n.Forward(input)
	if err != nil {
		return -1, err
	}
	return tensor.ArgMax(out), nil
}

// Layers returns the layers in execution order. The slice is a copy.
func (n *Network) Layers() []layers.Layer {
	return append([]layers.Layer(nil), n.layers...)
}

// Loss returns the network's loss function.
func (n *Network) Loss() Loss { return n.loss }

// LearningRate returns the rate used by Train.
func (n *Network) LearningRate() float64 { return n.learningRate }
