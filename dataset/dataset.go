// Package dataset loads and shapes classification data for training: IDX and
// CSV readers, one-hot encoding, standardisation, train/validation splitting
// and a synthetic generator for runs without data files.
package dataset

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrBadMagic is returned when an IDX header carries the wrong magic number.
	ErrBadMagic = errors.New("bad IDX magic number")
	// ErrBadHeader is returned when IDX dimensions are zero or too large.
	ErrBadHeader = errors.New("bad IDX header")
	// ErrLabelRange is returned for labels outside [0, numClasses).
	ErrLabelRange = errors.New("label out of range")
	// ErrCountMismatch is returned when feature and label counts disagree.
	ErrCountMismatch = errors.New("feature and label counts differ")
)

// Set is an ordered collection of feature vectors and integer class labels.
type Set struct {
	Features [][]float64
	Labels   []int
}

// Len returns the number of samples.
func (s *Set) Len() int { return len(s.Labels) }

// Head returns a view of the first n samples, or the whole set when n <= 0
// or n exceeds its length.
func (s *Set) Head(n int) *Set {
	if n <= 0 || n >= s.Len() {
		return s
	}
	return &Set{Features: s.Features[:n], Labels: s.Labels[:n]}
}

func newSet(features [][]float64, labels []int) (*Set, error) {
	if len(features) != len(labels) {
		return nil, errors.Wrapf(ErrCountMismatch, "%d feature rows, %d labels", len(features), len(labels))
	}
	return &Set{Features: features, Labels: labels}, nil
}

// OneHot expands class ids into one-hot rows of width numClasses.
func OneHot(labels []int, numClasses int) ([][]float64, error) {
	out := make([][]float64, len(labels))
	for i, l := range labels {
		if l < 0 || l >= numClasses {
			return nil, errors.Wrapf(ErrLabelRange, "label %d at index %d, valid range [0-%d]", l, i, numClasses-1)
		}
		row := make([]float64, numClasses)
		row[l] = 1
		out[i] = row
	}
	return out, nil
}

// Split keeps the first (1-validationRatio) share of samples for training and
// the rest for validation. The returned sets share storage with s.
func Split(s *Set, validationRatio float64) (train, val *Set) {
	splitIdx := int(float64(s.Len()) * (1.0 - validationRatio))
	if splitIdx < 0 {
		splitIdx = 0
	}
	if splitIdx > s.Len() {
		splitIdx = s.Len()
	}
	return &Set{
			Features: s.Features[:splitIdx],
			Labels:   s.Labels[:splitIdx],
		}, &Set{
			Features: s.Features[splitIdx:],
			Labels:   s.Labels[splitIdx:],
		}
}

// Scaler holds per-column statistics used to standardise features.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes the population mean and standard deviation of every
// column. Constant columns get a standard deviation of 1 so they are only
// shifted.
func FitScaler(features [][]float64) Scaler {
	if len(features) == 0 {
		return Scaler{}
	}
	cols := len(features[0])
	sc := Scaler{Mean: make([]float64, cols), Std: make([]float64, cols)}
	column := make([]float64, len(features))
	for j := 0; j < cols; j++ {
		for i, row := range features {
			column[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		sc.Mean[j], sc.Std[j] = mean, std
	}
	return sc
}

// Apply returns a copy of features with every column shifted by Mean and
// scaled by Std. Rows must have len(Mean) columns.
func (sc Scaler) Apply(features [][]float64) [][]float64 {
	if len(features) == 0 {
		return nil
	}
	out := make([][]float64, len(features))
	for i, row := range features {
		scaled := make([]float64, len(row))
		for j, x := range row {
			scaled[j] = (x - sc.Mean[j]) / sc.Std[j]
		}
		out[i] = scaled
	}
	return out
}

// Standardize returns a copy of features scaled by their own statistics.
func Standardize(features [][]float64) [][]float64 {
	return FitScaler(features).Apply(features)
}

// Synthetic draws n samples in [0,1]^inputs from classes prototype
// clusters. Each class has a random prototype; samples are the prototype
// plus uniform noise, clamped to [0,1]. Labels cycle through the classes.
func Synthetic(n, inputs, classes int, src rand.Source) *Set {
	if n < 0 || inputs <= 0 || classes <= 0 {
		panic("dataset: Synthetic needs positive inputs and classes")
	}
	unit := distuv.Uniform{Min: 0, Max: 1, Src: src}
	noise := distuv.Uniform{Min: -0.15, Max: 0.15, Src: src}

	prototypes := make([][]float64, classes)
	for c := range prototypes {
		prototypes[c] = make([]float64, inputs)
		for j := range prototypes[c] {
			prototypes[c][j] = unit.Rand()
		}
	}

	s := &Set{Features: make([][]float64, n), Labels: make([]int, n)}
	for i := 0; i < n; i++ {
		c := i % classes
		row := make([]float64, inputs)
		for j := range row {
			row[j] = math.Min(1, math.Max(0, prototypes[c][j]+noise.Rand()))
		}
		s.Features[i] = row
		s.Labels[i] = c
	}
	return s
}
