package layers

import (
	"math"
	"testing"

	"sgdnet/tensor"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestReLU_Forward(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	r := NewReLU()
	for trial := 0; trial < 20; trial++ {
		in := make([]float64, 12)
		for i := range in {
			in[i] = rng.NormFloat64()
		}
		in[0] = 0
		out, err := r.Forward(tensor.NewWithData(in))
		require.NoError(t, err)
		for i, v := range in {
			assert.Equal(t, math.Max(0, v), out.Data[i])
		}
	}
}

func TestReLU_BackwardMasksNonPositive(t *testing.T) {
	r := NewReLU()
	in := []float64{-2, 0, 1e-12, 3, -0.5}
	_, err := r.Forward(tensor.NewWithData(in))
	require.NoError(t, err)

	grad, err := r.Backward(tensor.NewWithData([]float64{1, 2, 3, 4, 5}), 0.5)
	require.NoError(t, err)
	// input exactly zero is treated as non-positive
	require.Equal(t, []float64{0, 0, 3, 4, 0}, grad.Data)
}

func TestReLU_Errors(t *testing.T) {
	r := NewReLU()
	_, err := r.Backward(tensor.New(3), 0)
	require.True(t, errors.Is(err, ErrNoForward))

	_, err = r.Forward(tensor.New(3))
	require.NoError(t, err)
	_, err = r.Backward(tensor.New(4), 0)
	require.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestSoftmax_ForwardIsDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s := NewSoftmax()
	for trial := 0; trial < 50; trial++ {
		in := make([]float64, 10)
		for i := range in {
			in[i] = rng.NormFloat64() * 50
		}
		out, err := s.Forward(tensor.NewWithData(in))
		require.NoError(t, err)
		sum := 0.0
		for _, p := range out.Data {
			require.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		require.InDelta(t, 1.0, sum, 1e-9)
		require.Equal(t, out.Data, s.Output().Data)
	}
}

func TestSoftmax_LargeInputsDoNotOverflow(t *testing.T) {
	s := NewSoftmax()
	out, err := s.Forward(tensor.NewWithData([]float64{1000, 1000}))
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0.5, 0.5}, out.Data, 1e-12)
}

func TestSoftmax_BackwardUnsupported(t *testing.T) {
	s := NewSoftmax()
	require.Nil(t, s.Output())
	_, err := s.Forward(tensor.NewWithData([]float64{1, 2}))
	require.NoError(t, err)
	_, err = s.Backward(tensor.New(2), 0.1)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnsupported))
}

func TestLayerTags(t *testing.T) {
	var ls []Layer = []Layer{NewDense(4, 2, nil), NewReLU(), NewSoftmax()}
	tags := make([]string, len(ls))
	for i, l := range ls {
		tags[i] = l.Tag()
	}
	require.Equal(t, []string{"Dense_4_2", "ReLU", "Softmax"}, tags)
}
