// Package trainer drives multi-epoch SGD training of an nn.Network and keeps
// the per-epoch metrics history.
package trainer

import (
	"context"
	"time"

	"sgdnet/nn"
	"sgdnet/tensor"
	"sgdnet/utils"

	"github.com/pkg/errors"
)

var (
	// ErrLengthMismatch is returned when inputs and labels differ in count.
	ErrLengthMismatch = errors.New("inputs and labels differ in length")
	// ErrEmptyDataset is returned when a pass is requested over no samples.
	ErrEmptyDataset = errors.New("dataset is empty")
)

// Option configures a Trainer.
type Option func(*Trainer)

// WithEpochHook registers a function called with each epoch's metrics right
// after they are appended to the history.
func WithEpochHook(hook func(EpochMetrics)) Option {
	return func(t *Trainer) { t.hook = hook }
}

// WithTimingStats accumulates forward, loss, backward and validation time
// into stats.
func WithTimingStats(stats *utils.TimingStats) Option {
	return func(t *Trainer) { t.stats = stats }
}

// Trainer runs epochs over a Network. The learning rate passed to New is the
// one handed to every Backward call, independently of the network's own rate.
type Trainer struct {
	net          *nn.Network
	learningRate float64
	history      History
	hook         func(EpochMetrics)
	stats        *utils.TimingStats
}

// New creates a Trainer for net.
func New(net *nn.Network, learningRate float64, opts ...Option) *Trainer {
	t := &Trainer{net: net, learningRate: learningRate}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// History returns a copy of the metrics recorded so far.
func (t *Trainer) History() History { return t.history.clone() }

// Network returns the network being trained.
func (t *Trainer) Network() *nn.Network { return t.net }

func checkSet(inputs, labels [][]float64) error {
	if len(inputs) != len(labels) {
		return errors.Wrapf(ErrLengthMismatch, "%d inputs, %d labels", len(inputs), len(labels))
	}
	if len(inputs) == 0 {
		return ErrEmptyDataset
	}
	return nil
}

// TrainAll trains for the given number of epochs. After each epoch it
// evaluates loss and accuracy on the validation set and appends one entry to
// the history. Cancellation is observed between epochs only.
func (t *Trainer) TrainAll(ctx context.Context, trainX, trainY, valX, valY [][]float64, epochs int) error {
	if err := checkSet(trainX, trainY); err != nil {
		return errors.Wrap(err, "training set")
	}
	if err := checkSet(valX, valY); err != nil {
		return errors.Wrap(err, "validation set")
	}

	for epoch := 1; epoch <= epochs; epoch++ {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "stopped before epoch %d", epoch)
		default:
		}

		start := time.Now()
		trainLoss, err := t.TrainOneEpoch(trainX, trainY)
		if err != nil {
			return errors.Wrapf(err, "epoch %d", epoch)
		}
		elapsed := time.Since(start)

		evalStart := time.Now()
		valLoss, err := t.EvaluateLoss(valX, valY)
		if err != nil {
			return errors.Wrapf(err, "epoch %d validation loss", epoch)
		}
		valAcc, err := t.EvaluateAccuracy(valX, valY)
		if err != nil {
			return errors.Wrapf(err, "epoch %d validation accuracy", epoch)
		}
		if t.stats != nil {
			t.stats.EvaluationTime += time.Since(evalStart)
		}

		m := EpochMetrics{
			Epoch:       epoch,
			TrainLoss:   trainLoss,
			ValLoss:     valLoss,
			ValAccuracy: valAcc,
			Seconds:     elapsed.Seconds(),
		}
		t.history.append(m)
		if t.hook != nil {
			t.hook(m)
		}
	}
	return nil
}

// TrainOneEpoch runs one SGD step per sample, in order, and returns the
// average training loss.
func (t *Trainer) TrainOneEpoch(inputs, labels [][]float64) (float64, error) {
	if err := checkSet(inputs, labels); err != nil {
		return 0, err
	}
	total := 0.0
	for i := range inputs {
		loss, err := t.step(tensor.Wrap(inputs[i]), tensor.Wrap(labels[i]))
		if err != nil {
			return 0, errors.Wrapf(err, "sample %d", i)
		}
		total += loss
	}
	return total / float64(len(inputs)), nil
}

func (t *Trainer) step(input, target *tensor.Tensor) (float64, error) {
	start := time.Now()
	out, err := t.net.Forward(input)
	if err != nil {
		return 0, err
	}
	fwd := time.Now()

	loss, err := t.net.Loss().Compute(out, target)
	if err != nil {
		return 0, err
	}
	grad, err := t.net.Loss().Derivative(out, target)
	if err != nil {
		return 0, err
	}
	lossDone := time.Now()

	if _, err := t.net.Backward(grad, t.learningRate); err != nil {
		return 0, err
	}
	if t.stats != nil {
		t.stats.ForwardPassTime += fwd.Sub(start)
		t.stats.LossComputationTime += lossDone.Sub(fwd)
		t.stats.BackwardPassTime += time.Since(lossDone)
	}
	return loss, nil
}

// EvaluateLoss returns the average loss over the set using forward passes
// only; no parameters change.
func (t *Trainer) EvaluateLoss(inputs, labels [][]float64) (float64, error) {
	if err := checkSet(inputs, labels); err != nil {
		return 0, err
	}
	total := 0.0
	for i := range inputs {
		out, err := t.net.Forward(tensor.Wrap(inputs[i]))
		if err != nil {
			return 0, errors.Wrapf(err, "sample %d", i)
		}
		loss, err := t.net.Loss().Compute(out, tensor.Wrap(labels[i]))
		if err != nil {
			return 0, errors.Wrapf(err, "sample %d", i)
		}
		total += loss
	}
	return total / float64(len(inputs)), nil
}

// EvaluateAccuracy returns the fraction of samples whose largest output
// matches the position of the largest target entry. Ties resolve to the
// lowest index on both sides.
func (t *Trainer) EvaluateAccuracy(inputs, labels [][]float64) (float64, error) {
	if err := checkSet(inputs, labels); err != nil {
		return 0, err
	}
	correct := 0
	for i := range inputs {
		predicted, err := t.net.Predict(tensor.Wrap(inputs[i]))
		if err != nil {
			return 0, errors.Wrapf(err, "sample %d", i)
		}
		if predicted == tensor.ArgMax(tensor.Wrap(labels[i])) {
			correct++
		}
	}
	return float64(correct) / float64(len(inputs)), nil
}
