package layers

import (
	"fmt"
	"math"

	"sgdnet/tensor"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dense is a fully-connected (affine) layer: output = W·input + b.
//
// W has shape [outDim, inDim] and b has length outDim. Both are fixed at
// construction, owned exclusively by the layer and changed only by Backward.
type Dense struct {
	inDim, outDim int
	w             *tensor.Tensor // [outDim, inDim]
	b             *tensor.Tensor // [outDim]

	lastInput *tensor.Tensor
}

// NewDense draws each weight from U[0,1) scaled by sqrt(1/inDim)
// and zeroes the bias. A nil src falls back to the global source.
func NewDense(inDim, outDim int, src rand.Source) *Dense {
	if inDim <= 0 || outDim <= 0 {
		panic(fmt.Sprintf("NewDense: dimensions must be positive, got %dx%d", inDim, outDim))
	}
	d := &Dense{
		inDim:  inDim,
		outDim: outDim,
		w:      tensor.New(outDim, inDim),
		b:      tensor.New(outDim),
	}
	u := distuv.Uniform{Min: 0, Max: 1, Src: src}
	scale := math.Sqrt(1.0 / float64(inDim))
	for i := range d.w.Data {
		d.w.Data[i] = u.Rand() * scale
	}
	return d
}

// NewDenseFrom builds a layer from explicit parameters; weights[i][j] connects
// input j to output i. The slices are copied.
func NewDenseFrom(weights [][]float64, bias []float64) (*Dense, error) {
	outDim := len(weights)
	if outDim == 0 || len(weights[0]) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "NewDenseFrom: empty weight matrix")
	}
	inDim := len(weights[0])
	if err := checkLen("NewDenseFrom", "bias", len(bias), outDim); err != nil {
		return nil, err
	}
	d := &Dense{
		inDim:  inDim,
		outDim: outDim,
		w:      tensor.New(outDim, inDim),
		b:      tensor.NewWithData(bias),
	}
	for i, row := range weights {
		if err := checkLen("NewDenseFrom", fmt.Sprintf("weight row %d", i), len(row), inDim); err != nil {
			return nil, err
		}
		copy(d.w.Data[i*inDim:(i+1)*inDim], row)
	}
	return d, nil
}

func (d *Dense) sealed() {}

// InputSize returns the expected input length.
func (d *Dense) InputSize() int { return d.inDim }

// OutputSize returns the output length.
func (d *Dense) OutputSize() int { return d.outDim }

// Weights returns a copy of W as rows.
func (d *Dense) Weights() [][]float64 {
	rows := make([][]float64, d.outDim)
	for i := range rows {
		rows[i] = append([]float64(nil), d.w.Data[i*d.inDim:(i+1)*d.inDim]...)
	}
	return rows
}

// Bias returns a copy of b.
func (d *Dense) Bias() []float64 {
	return append([]float64(nil), d.b.Data...)
}

// Forward computes W·x + b and caches a copy of x for Backward.
func (d *Dense) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkLen(d.Tag(), "input", x.Len(), d.inDim); err != nil {
		return nil, err
	}
	out, err := tensor.MatVec(d.w, x)
	if err != nil {
		return nil, errors.Wrap(err, d.Tag())
	}
	floats.Add(out.Data, d.b.Data)
	d.lastInput = x.Clone()
	return out, nil
}

// Backward returns Wᵀ·gradOut, computed from the weights as they were before
// this call, then applies W -= lr·gradOut·xᵀ and b -= lr·gradOut.
func (d *Dense) Backward(gradOut *tensor.Tensor, learningRate float64) (*tensor.Tensor, error) {
	input := d.lastInput
	if input == nil {
		return nil, errors.Wrap(ErrNoForward, d.Tag())
	}
	if err := checkLen(d.Tag(), "output gradient", gradOut.Len(), d.outDim); err != nil {
		return nil, err
	}
	gradIn, err := tensor.MatTVec(d.w, gradOut)
	if err != nil {
		return nil, errors.Wrap(err, d.Tag())
	}
	d.applyGradient(gradOut, input, learningRate)
	d.lastInput = nil
	return gradIn, nil
}

// applyGradient is the only place W and b change.
func (d *Dense) applyGradient(gradOut, input *tensor.Tensor, learningRate float64) {
	w := mat.NewDense(d.outDim, d.inDim, d.w.Data)
	w.RankOne(w, -learningRate, mat.NewVecDense(d.outDim, gradOut.Data), mat.NewVecDense(d.inDim, input.Data))
	floats.AddScaled(d.b.Data, -learningRate, gradOut.Data)
}

func (d *Dense) Tag() string {
	return fmt.Sprintf("Dense_%d_%d", d.inDim, d.outDim)
}
