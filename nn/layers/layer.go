// Package layers holds the layer variants of a feedforward network: Dense,
// ReLU and Softmax.
//
// Each layer caches what its own Backward needs during Forward. Backward
// consumes that cache, so every Backward must be preceded by exactly one
// Forward on the same instance.
package layers

import "sgdnet/tensor"

// Layer is a single computation unit in the network.
//
// The interface is sealed: only the variants in this package implement it.
type Layer interface {
	// Forward computes the layer output and caches the state Backward needs.
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	// Backward takes the gradient of the loss with respect to the layer's
	// output and returns the gradient with respect to its input. Layers that
	// own parameters apply a gradient-descent step with learningRate.
	Backward(gradOut *tensor.Tensor, learningRate float64) (*tensor.Tensor, error)
	// Tag is a short human-readable description, e.g. "Dense_784_128".
	Tag() string

	sealed()
}
