package nn

import (
	"testing"

	"sgdnet/nn/layers"
	"sgdnet/tensor"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func identityDense(t *testing.T) *layers.Dense {
	t.Helper()
	d, err := layers.NewDenseFrom([][]float64{{1, 0}, {0, 1}}, []float64{0, 0})
	require.NoError(t, err)
	return d
}

func TestNetwork_IdentityScenario(t *testing.T) {
	net := NewNetwork(0.1, NewCrossEntropyLoss(), identityDense(t))
	input := tensor.NewWithData([]float64{2, -1})
	target := tensor.NewWithData([]float64{1, 0})

	out, err := net.Forward(input)
	require.NoError(t, err)
	require.Equal(t, []float64{2, -1}, out.Data)

	soft := tensor.Softmax(out)
	require.InDeltaSlice(t, []float64{0.953, 0.047}, soft.Data, 1e-3)

	loss, err := net.Loss().Compute(out, target)
	require.NoError(t, err)
	require.InDelta(t, 0.0486, loss, 1e-3)

	grad, err := net.Loss().Derivative(out, target)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{-0.047, 0.047}, grad.Data, 1e-3)
}

func TestNetwork_TrainReducesLossOnFixedSample(t *testing.T) {
	dense := layers.NewDense(4, 3, rand.NewSource(42))
	net := NewNetwork(0.1, NewCrossEntropyLoss(), dense)
	input := tensor.NewWithData([]float64{0.2, 0.9, 0.4, 0.1})
	target := tensor.NewWithData([]float64{0, 0, 1})

	losses := make([]float64, 50)
	for i := range losses {
		l, err := net.Train(input, target)
		require.NoError(t, err)
		losses[i] = l
	}
	require.Less(t, losses[len(losses)-1], losses[0])

	mean := func(xs []float64) float64 {
		s := 0.0
		for _, x := range xs {
			s += x
		}
		return s / float64(len(xs))
	}
	require.Less(t, mean(losses[40:]), mean(losses[:10]))
	for i := 1; i < len(losses); i++ {
		require.LessOrEqual(t, losses[i], losses[i-1]+1e-12, "iteration %d", i)
	}

	pred, err := net.Predict(input)
	require.NoError(t, err)
	require.Equal(t, 2, pred)
}

func TestNetwork_MultiLayerTrains(t *testing.T) {
	src := rand.NewSource(9)
	net := NewNetwork(0.05, NewCrossEntropyLoss(),
		layers.NewDense(3, 8, src),
		layers.NewReLU(),
		layers.NewDense(8, 2, src),
	)
	xs := [][]float64{{1, 0, 0}, {0, 1, 1}}
	ys := [][]float64{{1, 0}, {0, 1}}

	first := 0.0
	last := 0.0
	for epoch := 0; epoch < 200; epoch++ {
		total := 0.0
		for i := range xs {
			l, err := net.Train(tensor.NewWithData(xs[i]), tensor.NewWithData(ys[i]))
			require.NoError(t, err)
			total += l
		}
		if epoch == 0 {
			first = total
		}
		last = total
	}
	require.Less(t, last, first)
	for i := range xs {
		p, err := net.Predict(tensor.NewWithData(xs[i]))
		require.NoError(t, err)
		require.Equal(t, tensor.ArgMax(tensor.NewWithData(ys[i])), p)
	}
}

func TestNetwork_ForwardIsRepeatableAndReadOnly(t *testing.T) {
	dense := layers.NewDense(3, 2, rand.NewSource(1))
	net := NewNetwork(0.1, NewCrossEntropyLoss(), dense, layers.NewReLU())
	before := dense.Weights()

	x := tensor.NewWithData([]float64{0.5, 0.25, 1})
	a, err := net.Forward(x)
	require.NoError(t, err)
	b, err := net.Forward(x)
	require.NoError(t, err)
	require.True(t, tensor.Equal(a, b))
	require.Equal(t, before, dense.Weights())
}

func TestNetwork_StepUsesGivenLearningRate(t *testing.T) {
	dense := identityDense(t)
	net := NewNetwork(0.5, NewCrossEntropyLoss(), dense)
	_, err := net.Step(tensor.NewWithData([]float64{1, 1}), tensor.NewWithData([]float64{1, 0}), 0)
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 0}, {0, 1}}, dense.Weights())
	require.Equal(t, 0.5, net.LearningRate())
}

func TestNetwork_SoftmaxOutputCannotTrain(t *testing.T) {
	net := NewNetwork(0.1, NewCrossEntropyLoss(), identityDense(t), layers.NewSoftmax())
	_, err := net.Train(tensor.NewWithData([]float64{1, 2}), tensor.NewWithData([]float64{0, 1}))
	require.True(t, errors.Is(err, layers.ErrUnsupported), "got %v", err)
}

func TestNetwork_SoftmaxRejectedBeforeAnyUpdate(t *testing.T) {
	identity := [][]float64{{1, 0}, {0, 1}}
	for name, build := range map[string]func(d *layers.Dense) *Network{
		"leading": func(d *layers.Dense) *Network {
			return NewNetwork(0.5, NewCrossEntropyLoss(), layers.NewSoftmax(), d)
		},
		"between": func(d *layers.Dense) *Network {
			return NewNetwork(0.5, NewCrossEntropyLoss(), identityDense(t), layers.NewSoftmax(), d)
		},
	} {
		t.Run(name, func(t *testing.T) {
			dense := identityDense(t)
			net := build(dense)
			_, err := net.Train(tensor.NewWithData([]float64{2, -1}), tensor.NewWithData([]float64{0, 1}))
			require.True(t, errors.Is(err, layers.ErrUnsupported), "got %v", err)
			require.Equal(t, identity, dense.Weights())
			require.Equal(t, []float64{0, 0}, dense.Bias())

			_, err = net.Forward(tensor.NewWithData([]float64{2, -1}))
			require.NoError(t, err)
			_, err = net.Backward(tensor.NewWithData([]float64{1, -1}), 0.5)
			require.True(t, errors.Is(err, layers.ErrUnsupported), "got %v", err)
			require.Equal(t, identity, dense.Weights())
		})
	}
}

func TestNetwork_Errors(t *testing.T) {
	empty := NewNetwork(0.1, NewCrossEntropyLoss())
	_, err := empty.Forward(tensor.New(2))
	require.True(t, errors.Is(err, ErrEmptyNetwork))

	net := NewNetwork(0.1, NewCrossEntropyLoss(), identityDense(t))
	require.NoError(t, net.Add(layers.NewReLU()))
	require.Len(t, net.Layers(), 2)

	_, err = net.Train(tensor.New(3), tensor.New(2))
	require.True(t, errors.Is(err, layers.ErrShapeMismatch), "got %v", err)

	_, err = net.Train(tensor.New(2), tensor.New(3))
	require.True(t, errors.Is(err, layers.ErrShapeMismatch), "got %v", err)

	err = net.Add(layers.NewReLU())
	require.True(t, errors.Is(err, ErrFrozen))

	fresh := NewNetwork(0.1, NewCrossEntropyLoss(), identityDense(t))
	_, err = fresh.Backward(tensor.New(2), 0.1)
	require.True(t, errors.Is(err, layers.ErrNoForward), "got %v", err)

	require.Panics(t, func() { NewNetwork(0.1, nil) })
}
