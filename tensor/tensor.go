package tensor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a simple n-D array backed by a flat []float64.
// Row-major; a matrix of Shape [r, c] stores row i at Data[i*c:(i+1)*c].
type Tensor struct {
	Data  []float64
	Shape []int
}

// New allocates a zeroed Tensor of given shape (product of dims = len(Data)).
func New(shape ...int) *Tensor {
	total := 1
	for _, d := range shape {
		total *= d
	}
	return &Tensor{
		Data:  make([]float64, total),
		Shape: append([]int(nil), shape...),
	}
}

// NewWithData creates a 1-D tensor holding a copy of data.
func NewWithData(data []float64) *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), data...),
		Shape: []int{len(data)},
	}
}

// Wrap creates a 1-D tensor that shares data's backing array.
// Callers must not mutate the result if data is owned elsewhere.
func Wrap(data []float64) *Tensor {
	return &Tensor{Data: data, Shape: []int{len(data)}}
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Clone returns a deep copy of t.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), t.Data...),
		Shape: append([]int(nil), t.Shape...),
	}
}

// Equal reports whether a and b have identical shape and bit-identical data.
func Equal(a, b *Tensor) bool {
	if !sameShape(a, b) {
		return false
	}
	for i := range a.Data {
		if math.Float64bits(a.Data[i]) != math.Float64bits(b.Data[i]) {
			return false
		}
	}
	return true
}

func sameShape(a, b *Tensor) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}

// MatVec returns w·x for a 2-D w of shape [r, c] and a vector x of length c.
func MatVec(w, x *Tensor) (*Tensor, error) {
	if len(w.Shape) != 2 {
		return nil, errors.Errorf("MatVec requires a 2-D matrix, got %v", w.Shape)
	}
	r, c := w.Shape[0], w.Shape[1]
	if len(x.Data) != c {
		return nil, errors.Errorf("MatVec: matrix %v cannot multiply vector of length %d", w.Shape, len(x.Data))
	}
	out := New(r)
	dst := mat.NewVecDense(r, out.Data)
	dst.MulVec(mat.NewDense(r, c, w.Data), mat.NewVecDense(c, x.Data))
	return out, nil
}

// MatTVec returns wᵀ·g for a 2-D w of shape [r, c] and a vector g of length r.
func MatTVec(w, g *Tensor) (*Tensor, error) {
	if len(w.Shape) != 2 {
		return nil, errors.Errorf("MatTVec requires a 2-D matrix, got %v", w.Shape)
	}
	r, c := w.Shape[0], w.Shape[1]
	if len(g.Data) != r {
		return nil, errors.Errorf("MatTVec: transposed matrix %v cannot multiply vector of length %d", w.Shape, len(g.Data))
	}
	out := New(c)
	dst := mat.NewVecDense(c, out.Data)
	dst.MulVec(mat.NewDense(r, c, w.Data).T(), mat.NewVecDense(r, g.Data))
	return out, nil
}

// ReluPlain applies ReLU to each element in a, returns new Tensor.
func ReluPlain(a *Tensor) *Tensor {
	out := New(a.Shape...)
	for i, v := range a.Data {
		if v > 0 {
			out.Data[i] = v
		}
	}
	return out
}

// Softmax returns exp(x_i - max(x)) / Σ exp(x_j - max(x)).
// Subtracting the maximum keeps every exponent <= 0, so exp never overflows.
// When the maximum is infinite, the probability mass is split evenly among
// the entries equal to it. NaN inputs yield NaN outputs.
func Softmax(logits *Tensor) *Tensor {
	out := New(logits.Shape...)
	if len(logits.Data) == 0 {
		return out
	}
	maxLogit := floats.Max(logits.Data)
	if math.IsInf(maxLogit, 0) {
		n := 0.0
		for i, v := range logits.Data {
			if v == maxLogit {
				out.Data[i] = 1
				n++
			} else if math.IsNaN(v) {
				out.Data[i] = math.NaN()
			}
		}
		floats.Scale(1/n, out.Data)
		return out
	}
	sum := 0.0
	for i, v := range logits.Data {
		e := math.Exp(v - maxLogit)
		out.Data[i] = e
		sum += e
	}
	floats.Scale(1/sum, out.Data)
	return out
}

// ArgMax returns the index of the largest element. Ties resolve to the lowest
// index. Returns -1 for an empty tensor.
func ArgMax(a *Tensor) int {
	if len(a.Data) == 0 {
		return -1
	}
	return floats.MaxIdx(a.Data)
}
