// sgdnet-train: single-process SGD trainer for feedforward classifiers
//
// Usage:
//
//	sgdnet-train --data=./Data --arch="784 128 128 10" --epochs=10 --lr=0.01
//	sgdnet-train --samples=2000 --arch="64 32 10" --plots=./out
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sgdnet/dataset"
	"sgdnet/nn"
	"sgdnet/nn/layers"
	"sgdnet/report"
	"sgdnet/trainer"
	"sgdnet/utils"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

var (
	dataRoot     = flag.String("data", "", "Directory holding MNIST IDX files")
	csvPath      = flag.String("csv", "", "MNIST-style CSV file (label,pixels...)")
	samples      = flag.Int("samples", 1000, "Number of synthetic samples when no data file is given")
	arch         = flag.String("arch", "784 128 128 10", "Layer sizes, input first")
	learningRate = flag.Float64("lr", 0.01, "Learning rate")
	epochs       = flag.Int("epochs", 10, "Number of training epochs")
	valRatio     = flag.Float64("val", 0.2, "Share of training samples held out for validation")
	seed         = flag.Uint64("seed", 42, "Random seed")
	maxSamples   = flag.Int("max-samples", 0, "Use at most this many training samples (0 = all)")
	standardize  = flag.Bool("standardize", false, "Standardise features per column")
	plotDir      = flag.String("plots", "", "Directory for metrics.png, epoch_time.png and history.csv")
	verbose      = flag.Bool("verbose", true, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	layout, err := utils.ParseArchitecture(*arch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid architecture: %v\n", err)
		os.Exit(2)
	}
	cfg := utils.Config{
		Architecture:    layout,
		LearningRate:    *learningRate,
		Epochs:          *epochs,
		ValidationRatio: *valRatio,
		Seed:            *seed,
		DataRoot:        *dataRoot,
		CSVPath:         *csvPath,
		Samples:         *samples,
		PlotDir:         *plotDir,
		MaxSamples:      *maxSamples,
		Standardize:     *standardize,
	}
	if err := utils.ValidateConfig(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg utils.Config) error {
	out := utils.Output
	fmt.Fprintln(out, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║                      sgdnet Trainer                          ║")
	fmt.Fprintln(out, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintf(out, "\nConfiguration:\n")
	fmt.Fprintf(out, "  Architecture:  %v\n", cfg.Architecture)
	fmt.Fprintf(out, "  Epochs:        %d\n", cfg.Epochs)
	fmt.Fprintf(out, "  Learning Rate: %.4f\n", cfg.LearningRate)
	fmt.Fprintf(out, "  Validation:    %.0f%%\n", cfg.ValidationRatio*100)
	fmt.Fprintf(out, "  Seed:          %d\n", cfg.Seed)
	fmt.Fprintln(out)

	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	full, test, err := loadData(cfg)
	if err != nil {
		return errors.Wrap(err, "load data")
	}
	stats.DataLoadingTime = time.Since(start)

	inputs, classes := cfg.Architecture[0], cfg.Architecture[len(cfg.Architecture)-1]
	if err := checkWidth(full, inputs); err != nil {
		return err
	}
	if test != nil {
		if err := checkWidth(test, inputs); err != nil {
			return errors.Wrap(err, "test set")
		}
	}

	trainSet, valSet := dataset.Split(full, cfg.ValidationRatio)
	if trainSet.Len() == 0 || valSet.Len() == 0 {
		return errors.Errorf("split of %d samples at ratio %.2f leaves an empty side", full.Len(), cfg.ValidationRatio)
	}
	if cfg.Standardize {
		trainSet, valSet, test = standardizeSets(trainSet, valSet, test)
	}
	trainY, err := dataset.OneHot(trainSet.Labels, classes)
	if err != nil {
		return errors.Wrap(err, "encode training labels")
	}
	valY, err := dataset.OneHot(valSet.Labels, classes)
	if err != nil {
		return errors.Wrap(err, "encode validation labels")
	}
	fmt.Fprintf(out, "Data: %d train, %d validation samples\n", trainSet.Len(), valSet.Len())

	start = time.Now()
	net := buildNetwork(cfg.Architecture, cfg.LearningRate, rand.NewSource(cfg.Seed))
	stats.ModelInitTime = time.Since(start)
	fmt.Fprintf(out, "Model: %d layers\n", len(net.Layers()))

	fmt.Fprintln(out, "\nStarting training...")
	printer := report.NewPrinter(out, cfg.Epochs)
	tr := trainer.New(net, cfg.LearningRate,
		trainer.WithEpochHook(printer.Epoch),
		trainer.WithTimingStats(stats),
	)
	trainErr := tr.TrainAll(ctx, trainSet.Features, trainY, valSet.Features, valY, cfg.Epochs)
	if trainErr != nil && !errors.Is(trainErr, context.Canceled) {
		return errors.Wrap(trainErr, "train")
	}
	if trainErr != nil {
		fmt.Fprintf(out, "\nInterrupted after %d epochs\n", tr.History().Len())
	}

	if test != nil && test.Len() > 0 && trainErr == nil {
		testY, err := dataset.OneHot(test.Labels, classes)
		if err != nil {
			return errors.Wrap(err, "encode test labels")
		}
		acc, err := tr.EvaluateAccuracy(test.Features, testY)
		if err != nil {
			return errors.Wrap(err, "test accuracy")
		}
		fmt.Fprintf(out, "\nTest accuracy: %.2f%% (%d samples)\n", acc*100, test.Len())
	}

	if cfg.PlotDir != "" && tr.History().Len() > 0 {
		start = time.Now()
		if err := writeReports(tr.History(), cfg.PlotDir); err != nil {
			return err
		}
		stats.PlotTime = time.Since(start)
		fmt.Fprintf(out, "\nReports written to %s\n", cfg.PlotDir)
	}

	stats.TotalTime = time.Since(totalStart)
	fmt.Fprintf(out, "\nTraining complete! Total time: %.2fs\n", stats.TotalTime.Seconds())
	utils.PrintTimingStats(stats, tr.History().Len()*trainSet.Len())
	return nil
}

// buildNetwork stacks Dense layers with ReLU between them. The last Dense
// emits raw logits for the cross-entropy loss.
func buildNetwork(arch []int, lr float64, src rand.Source) *nn.Network {
	net := nn.NewNetwork(lr, nn.NewCrossEntropyLoss())
	for i := 0; i+1 < len(arch); i++ {
		if i > 0 {
			mustAdd(net, layers.NewReLU())
		}
		mustAdd(net, layers.NewDense(arch[i], arch[i+1], src))
	}
	return net
}

func mustAdd(net *nn.Network, l layers.Layer) {
	if err := net.Add(l); err != nil {
		panic(err)
	}
}

// loadData returns the training set and, when one exists, a test set.
func loadData(cfg utils.Config) (*dataset.Set, *dataset.Set, error) {
	var train, test *dataset.Set
	switch {
	case cfg.DataRoot != "":
		var err error
		train, err = dataset.LoadMNIST(cfg.DataRoot, true)
		if err != nil {
			return nil, nil, err
		}
		test, err = dataset.LoadMNIST(cfg.DataRoot, false)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, nil, err
			}
			test = nil
		}
	case cfg.CSVPath != "":
		f, err := os.Open(cfg.CSVPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open csv")
		}
		defer f.Close()
		train, err = dataset.LoadCSV(f, cfg.Architecture[0])
		if err != nil {
			return nil, nil, errors.Wrap(err, cfg.CSVPath)
		}
	default:
		inputs, classes := cfg.Architecture[0], cfg.Architecture[len(cfg.Architecture)-1]
		fmt.Fprintf(utils.Output, "Generating %d synthetic samples...\n", cfg.Samples)
		train = dataset.Synthetic(cfg.Samples, inputs, classes, rand.NewSource(cfg.Seed+1))
	}
	return train.Head(cfg.MaxSamples), test, nil
}

// standardizeSets scales every set with the training split's column statistics.
func standardizeSets(train, val, test *dataset.Set) (*dataset.Set, *dataset.Set, *dataset.Set) {
	sc := dataset.FitScaler(train.Features)
	scaled := func(s *dataset.Set) *dataset.Set {
		if s == nil {
			return nil
		}
		return &dataset.Set{Features: sc.Apply(s.Features), Labels: s.Labels}
	}
	return scaled(train), scaled(val), scaled(test)
}

func checkWidth(s *dataset.Set, inputs int) error {
	for i, row := range s.Features {
		if len(row) != inputs {
			return errors.Wrapf(layers.ErrShapeMismatch, "sample %d has %d features, architecture expects %d", i, len(row), inputs)
		}
	}
	return nil
}

func writeReports(h trainer.History, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create plot dir")
	}
	if err := report.PlotMetrics(h, filepath.Join(dir, "metrics.png")); err != nil {
		return err
	}
	if err := report.PlotEpochTime(h, filepath.Join(dir, "epoch_time.png")); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "history.csv"))
	if err != nil {
		return errors.Wrap(err, "create history.csv")
	}
	if err := report.WriteCSV(f, h); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close history.csv")
}
