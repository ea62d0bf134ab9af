package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

func general(t *Tensor) blas32.General {
	return blas32.General{
		Rows:   t.shape[0],
		Cols:   t.shape[1],
		Stride: t.shape[1],
		Data:   t.data,
	}
}

func require2D(op string, ts ...*Tensor) {
	for _, t := range ts {
		if len(t.shape) != 2 {
			panic(fmt.Sprintf("%s: expected 2-D tensor, got shape %v", op, t.shape))
		}
	}
}

// MatMul computes a @ b for a [n, k] and b [k, m].
func MatMul(a, b *Tensor) *Tensor {
	require2D("MatMul", a, b)
	if a.shape[1] != b.shape[0] {
		panic(fmt.Sprintf("MatMul: inner dimensions differ: %v @ %v", a.shape, b.shape))
	}
	out := Zeros(Shape{a.shape[0], b.shape[1]})
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, general(a), general(b), 0, general(out))
	return out
}

// MatMulTransB computes a @ b.T for a [n, k] and b [m, k].
// This is the layout of a Linear weight [out, in].
func MatMulTransB(a, b *Tensor) *Tensor {
	require2D("MatMulTransB", a, b)
	if a.shape[1] != b.shape[1] {
		panic(fmt.Sprintf("MatMulTransB: inner dimensions differ: %v @ %v.T", a.shape, b.shape))
	}
	out := Zeros(Shape{a.shape[0], b.shape[0]})
	blas32.Gemm(blas.NoTrans, blas.Trans, 1, general(a), general(b), 0, general(out))
	return out
}

// Dot returns the inner product of two equal-length vectors.
func Dot(x, y []float32) float32 {
	return blas32.Dot(vector(x), vector(y))
}

// Norm returns the Euclidean norm of x.
func Norm(x []float32) float32 {
	return blas32.Nrm2(vector(x))
}

func vector(x []float32) blas32.Vector {
	return blas32.Vector{N: len(x), Data: x, Inc: 1}
}

// AddRowVector adds v to every row of t in place and returns t.
func (t *Tensor) AddRowVector(v *Tensor) *Tensor {
	require2D("AddRowVector", t)
	cols := t.shape[1]
	if v.NumElements() != cols {
		panic(fmt.Sprintf("AddRowVector: vector of %d elements for %d columns", v.NumElements(), cols))
	}
	for r := 0; r < t.shape[0]; r++ {
		row := t.data[r*cols : (r+1)*cols]
		for c, x := range v.data {
			row[c] += x
		}
	}
	return t
}

// Add returns the elementwise sum of two tensors of the same shape.
func Add(a, b *Tensor) *Tensor {
	if !a.shape.Equal(b.shape) {
		panic(fmt.Sprintf("Add: shape mismatch %v vs %v", a.shape, b.shape))
	}
	out := a.Clone()
	for i, x := range b.data {
		out.data[i] += x
	}
	return out
}

// Mul returns the elementwise product of two tensors of the same shape.
func Mul(a, b *Tensor) *Tensor {
	if !a.shape.Equal(b.shape) {
		panic(fmt.Sprintf("Mul: shape mismatch %v vs %v", a.shape, b.shape))
	}
	out := a.Clone()
	for i, x := range b.data {
		out.data[i] *= x
	}
	return out
}

// Apply replaces every element x with f(x) in place and returns t.
func (t *Tensor) Apply(f func(float32) float32) *Tensor {
	for i, x := range t.data {
		t.data[i] = f(x)
	}
	return t
}

// ConcatColumns joins 2-D tensors with equal row counts along axis 1.
func ConcatColumns(ts ...*Tensor) *Tensor {
	require2D("ConcatColumns", ts...)
	rows := ts[0].shape[0]
	cols := 0
	for _, t := range ts {
		if t.shape[0] != rows {
			panic(fmt.Sprintf("ConcatColumns: row count mismatch %d vs %d", t.shape[0], rows))
		}
		cols += t.shape[1]
	}
	out := Zeros(Shape{rows, cols})
	for r := 0; r < rows; r++ {
		dst := out.Row(r)
		off := 0
		for _, t := range ts {
			off += copy(dst[off:], t.Row(r))
		}
	}
	return out
}

// SliceColumns returns a copy of columns [from, to) of a 2-D tensor.
func (t *Tensor) SliceColumns(from, to int) *Tensor {
	require2D("SliceColumns", t)
	if from < 0 || to > t.shape[1] || from >= to {
		panic(fmt.Sprintf("SliceColumns: invalid range [%d, %d) for shape %v", from, to, t.shape))
	}
	out := Zeros(Shape{t.shape[0], to - from})
	for r := 0; r < t.shape[0]; r++ {
		copy(out.Row(r), t.Row(r)[from:to])
	}
	return out
}

// GatherRows returns a new 2-D tensor whose row i is row idx[i] of t.
func (t *Tensor) GatherRows(idx []int) *Tensor {
	require2D("GatherRows", t)
	out := Zeros(Shape{len(idx), t.shape[1]})
	for i, r := range idx {
		if r < 0 || r >= t.shape[0] {
			panic(fmt.Sprintf("GatherRows: row %d out of range for shape %v", r, t.shape))
		}
		copy(out.Row(i), t.Row(r))
	}
	return out
}

// SoftmaxColumns normalizes a 2-D tensor over axis 0, so that every column
// sums to one. Entries equal to -Inf receive a weight of exactly 0.
// A column made only of -Inf has no defined softmax and yields NaN.
func SoftmaxColumns(t *Tensor) *Tensor {
	require2D("SoftmaxColumns", t)
	rows, cols := t.shape[0], t.shape[1]
	out := Zeros(Shape{rows, cols})
	for c := 0; c < cols; c++ {
		maxVal := math.Inf(-1)
		for r := 0; r < rows; r++ {
			maxVal = math.Max(maxVal, float64(t.data[r*cols+c]))
		}
		sum := 0.0
		for r := 0; r < rows; r++ {
			e := math.Exp(float64(t.data[r*cols+c]) - maxVal)
			out.data[r*cols+c] = float32(e)
			sum += e
		}
		for r := 0; r < rows; r++ {
			out.data[r*cols+c] = float32(float64(out.data[r*cols+c]) / sum)
		}
	}
	return out
}

// LogSoftmaxRows computes log(softmax(x)) along axis 1 of a 2-D tensor
// using the log-sum-exp trick.
func LogSoftmaxRows(t *Tensor) *Tensor {
	require2D("LogSoftmaxRows", t)
	out := Zeros(t.shape)
	for r := 0; r < t.shape[0]; r++ {
		row := t.Row(r)
		maxVal := math.Inf(-1)
		for _, x := range row {
			maxVal = math.Max(maxVal, float64(x))
		}
		sum := 0.0
		for _, x := range row {
			sum += math.Exp(float64(x) - maxVal)
		}
		lse := maxVal + math.Log(sum)
		dst := out.Row(r)
		for i, x := range row {
			dst[i] = float32(float64(x) - lse)
		}
	}
	return out
}
