package layers

import "github.com/pkg/errors"

// Contract violations reported by Forward/Backward. They are wrapped with
// context, so compare with errors.Is.
var (
	// ErrShapeMismatch: a vector's length disagrees with the layer's size.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNoForward: Backward called without a fresh Forward on the same layer.
	ErrNoForward = errors.New("backward called without a preceding forward")
	// ErrUnsupported: the layer has no standalone backward pass.
	ErrUnsupported = errors.New("unsupported operation")
)

func checkLen(tag, what string, got, want int) error {
	if got != want {
		return errors.Wrapf(ErrShapeMismatch, "%s: %s has length %d, want %d", tag, what, got, want)
	}
	return nil
}
