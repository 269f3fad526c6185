package utils

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config holds training configuration
type Config struct {
	Architecture    []int
	LearningRate    float64
	Epochs          int
	ValidationRatio float64
	Seed            uint64
	DataRoot        string
	CSVPath         string
	Samples         int
	PlotDir         string
	MaxSamples      int
	Standardize     bool
}

// DefaultConfig returns the reference MNIST setup.
func DefaultConfig() Config {
	return Config{
		Architecture:    []int{784, 128, 128, 10},
		LearningRate:    0.01,
		Epochs:          10,
		ValidationRatio: 0.2,
		Seed:            42,
		Samples:         1000,
	}
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(err, "architecture entry %d", i)
		}
		arch[i] = n
	}
	return arch, nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if len(config.Architecture) < 2 {
		return errors.New("architecture must have at least 2 layers (input and output)")
	}

	for i, n := range config.Architecture {
		if n <= 0 {
			return errors.Errorf("architecture entry %d must be positive, got %d", i, n)
		}
	}

	if config.LearningRate <= 0 {
		return errors.New("learning rate must be positive")
	}

	if config.Epochs <= 0 {
		return errors.New("epochs must be positive")
	}

	if config.ValidationRatio <= 0 || config.ValidationRatio >= 1 {
		return errors.Errorf("validation ratio must be in (0, 1), got %g", config.ValidationRatio)
	}

	if config.MaxSamples < 0 {
		return errors.New("max samples must not be negative")
	}

	if config.DataRoot == "" && config.CSVPath == "" && config.Samples <= 0 {
		return errors.New("no data source: set a data root, a CSV path or a positive sample count")
	}

	return nil
}
