package trainer

import (
	"context"
	"testing"

	"sgdnet/nn"
	"sgdnet/nn/layers"
	"sgdnet/utils"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func identityNet(t *testing.T, lr float64) (*nn.Network, *layers.Dense) {
	t.Helper()
	d, err := layers.NewDenseFrom([][]float64{{1, 0}, {0, 1}}, []float64{0, 0})
	require.NoError(t, err)
	return nn.NewNetwork(lr, nn.NewCrossEntropyLoss(), d), d
}

// clusters returns a separable two-class set; class 0 has the larger first feature.
func clusters(n int, seed uint64) ([][]float64, [][]float64) {
	rng := rand.New(rand.NewSource(seed))
	xs := make([][]float64, n)
	ys := make([][]float64, n)
	for i := range xs {
		c := i % 2
		a, b := 0.8+0.2*rng.Float64(), 0.2*rng.Float64()
		if c == 1 {
			a, b = b, a
		}
		xs[i] = []float64{a, b, 0.5 * rng.Float64()}
		ys[i] = []float64{0, 0}
		ys[i][c] = 1
	}
	return xs, ys
}

func TestEvaluateAccuracy_AllOrNothing(t *testing.T) {
	net, _ := identityNet(t, 0.1)
	tr := New(net, 0.1)
	xs := [][]float64{{2, -1}, {-1, 3}, {0.5, 0.1}}

	acc, err := tr.EvaluateAccuracy(xs, [][]float64{{1, 0}, {0, 1}, {1, 0}})
	require.NoError(t, err)
	require.Equal(t, 1.0, acc)

	acc, err = tr.EvaluateAccuracy(xs, [][]float64{{0, 1}, {1, 0}, {0, 1}})
	require.NoError(t, err)
	require.Equal(t, 0.0, acc)
}

func TestEvaluateAccuracy_TiesGoToLowestIndex(t *testing.T) {
	net, _ := identityNet(t, 0.1)
	tr := New(net, 0.1)
	acc, err := tr.EvaluateAccuracy([][]float64{{1, 1}}, [][]float64{{1, 0}})
	require.NoError(t, err)
	require.Equal(t, 1.0, acc)
}

func TestEvaluationDoesNotMutate(t *testing.T) {
	net, dense := identityNet(t, 0.1)
	tr := New(net, 0.1)
	xs, ys := clusters(10, 1)
	xs2 := make([][]float64, len(xs))
	for i := range xs {
		xs2[i] = xs[i][:2]
	}

	loss, err := tr.EvaluateLoss(xs2, ys)
	require.NoError(t, err)
	require.Greater(t, loss, 0.0)
	_, err = tr.EvaluateAccuracy(xs2, ys)
	require.NoError(t, err)

	require.Equal(t, [][]float64{{1, 0}, {0, 1}}, dense.Weights())
	require.Equal(t, []float64{0, 0}, dense.Bias())
	require.Equal(t, 0, tr.History().Len())
}

func TestTrainerLearningRateIsIndependent(t *testing.T) {
	net, dense := identityNet(t, 1.0)
	tr := New(net, 0)
	_, err := tr.TrainOneEpoch([][]float64{{1, 2}}, [][]float64{{1, 0}})
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 0}, {0, 1}}, dense.Weights())

	net, dense = identityNet(t, 0)
	tr = New(net, 0.5)
	_, err = tr.TrainOneEpoch([][]float64{{1, 2}}, [][]float64{{1, 0}})
	require.NoError(t, err)
	require.NotEqual(t, [][]float64{{1, 0}, {0, 1}}, dense.Weights())
}

func TestTrainAll(t *testing.T) {
	src := rand.NewSource(42)
	net := nn.NewNetwork(0.1, nn.NewCrossEntropyLoss(),
		layers.NewDense(3, 6, src),
		layers.NewReLU(),
		layers.NewDense(6, 2, src),
	)
	trainX, trainY := clusters(80, 2)
	valX, valY := clusters(20, 3)

	var seen []EpochMetrics
	stats := &utils.TimingStats{}
	tr := New(net, 0.1,
		WithEpochHook(func(m EpochMetrics) { seen = append(seen, m) }),
		WithTimingStats(stats),
	)
	const epochs = 30
	require.NoError(t, tr.TrainAll(context.Background(), trainX, trainY, valX, valY, epochs))

	h := tr.History()
	require.Equal(t, epochs, h.Len())
	for i, e := range h.Epochs {
		require.Equal(t, i+1, e)
	}
	require.Len(t, h.TrainLoss, epochs)
	require.Len(t, h.ValLoss, epochs)
	require.Len(t, h.ValAccuracy, epochs)
	require.Len(t, h.Seconds, epochs)
	require.Len(t, seen, epochs)
	for i, m := range seen {
		assert.Equal(t, h.At(i), m)
		assert.GreaterOrEqual(t, m.Seconds, 0.0)
		assert.GreaterOrEqual(t, m.ValAccuracy, 0.0)
		assert.LessOrEqual(t, m.ValAccuracy, 1.0)
	}
	require.Less(t, h.TrainLoss[epochs-1], h.TrainLoss[0])
	require.GreaterOrEqual(t, h.ValAccuracy[epochs-1], 0.9)
	require.True(t, stats.ForwardPassTime+stats.BackwardPassTime+stats.LossComputationTime > 0)

	// a second call keeps appending
	require.NoError(t, tr.TrainAll(context.Background(), trainX, trainY, valX, valY, 1))
	require.Equal(t, epochs+1, tr.History().Len())
	require.Equal(t, 1, tr.History().Epochs[epochs])
}

func TestHistoryIsACopy(t *testing.T) {
	net, _ := identityNet(t, 0.1)
	tr := New(net, 0.1)
	xs := [][]float64{{1, 0}, {0, 1}}
	require.NoError(t, tr.TrainAll(context.Background(), xs, xs, xs, xs, 2))

	h := tr.History()
	h.TrainLoss[0] = -1
	h.Epochs = append(h.Epochs, 99)
	again := tr.History()
	require.NotEqual(t, -1.0, again.TrainLoss[0])
	require.Equal(t, []int{1, 2}, again.Epochs)
}

func TestTrainAll_Cancelled(t *testing.T) {
	net, _ := identityNet(t, 0.1)
	tr := New(net, 0.1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	xs := [][]float64{{1, 0}}
	err := tr.TrainAll(ctx, xs, xs, xs, xs, 3)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
	require.Equal(t, 0, tr.History().Len())
}

func TestTrainAll_CancelledBetweenEpochs(t *testing.T) {
	net, _ := identityNet(t, 0.1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := New(net, 0.1, WithEpochHook(func(m EpochMetrics) {
		if m.Epoch == 2 {
			cancel()
		}
	}))

	xs := [][]float64{{1, 0}, {0, 1}}
	err := tr.TrainAll(ctx, xs, xs, xs, xs, 5)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
	require.Equal(t, 2, tr.History().Len())
}

func TestTrainAll_BadInput(t *testing.T) {
	net, _ := identityNet(t, 0.1)
	tr := New(net, 0.1)
	ctx := context.Background()
	xs := [][]float64{{1, 0}, {0, 1}}

	err := tr.TrainAll(ctx, xs, xs[:1], xs, xs, 1)
	require.True(t, errors.Is(err, ErrLengthMismatch), "got %v", err)

	err = tr.TrainAll(ctx, xs, xs, xs, xs[:1], 1)
	require.True(t, errors.Is(err, ErrLengthMismatch), "got %v", err)

	err = tr.TrainAll(ctx, nil, nil, xs, xs, 1)
	require.True(t, errors.Is(err, ErrEmptyDataset), "got %v", err)

	_, err = tr.EvaluateAccuracy(nil, nil)
	require.True(t, errors.Is(err, ErrEmptyDataset))

	err = tr.TrainAll(ctx, [][]float64{{1, 2, 3}}, [][]float64{{1, 0}}, xs, xs, 1)
	require.True(t, errors.Is(err, layers.ErrShapeMismatch), "got %v", err)
	require.Equal(t, 0, tr.History().Len())
}
