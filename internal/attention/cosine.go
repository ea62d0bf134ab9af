package attention

import (
	"math"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/parallel"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// cosineEps bounds the denominator of the cosine similarity.
const cosineEps = 1e-8

// Cosine is single-head attention scored by cosine similarity:
//
//	e[s,m]     = cos(query[m], enc[s,m])
//	alpha[:,m] = softmax_s(e[:,m]) with e[s,m] = -Inf for s >= lens[m]
//	c[m]       = sum_s alpha[s,m] * enc[s,m]
//
// Padding positions therefore get a weight of exactly 0.
type Cosine struct {
	Parallel parallel.Config
}

// NewCosine returns a Cosine strategy with default parallelism.
func NewCosine() *Cosine {
	return &Cosine{Parallel: parallel.Default()}
}

// Kind implements Strategy.
func (*Cosine) Kind() Kind { return KindSingle }

// StateDict implements nn.Module. Cosine has no parameters.
func (*Cosine) StateDict(string, nn.StateDict) {}

// LoadStateDict implements nn.Module.
func (*Cosine) LoadStateDict(string, nn.StateDict) error { return nil }

// Energies returns the unmasked scores e [S, M].
func (a *Cosine) Energies(query, enc *tensor.Tensor) *tensor.Tensor {
	es := enc.Shape()
	S, M, D := es[0], es[1], es[2]
	out := tensor.Zeros(tensor.Shape{S, M})
	encData, qData, eData := enc.Data(), query.Data(), out.Data()

	// Rows of the flattened [S*M] grid; k = s*M + m.
	parallel.ForRows(S*M, a.Parallel, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			m := k % M
			q := qData[m*D : (m+1)*D]
			h := encData[k*D : (k+1)*D]
			denom := math.Max(float64(tensor.Norm(q))*float64(tensor.Norm(h)), cosineEps)
			eData[k] = float32(float64(tensor.Dot(q, h)) / denom)
		}
	})
	return out
}

// Weights returns alpha [S, M]; column m sums to 1 over s < lens[m] and is
// exactly 0 elsewhere. Panics if any lens[m] is outside [1, S].
func (a *Cosine) Weights(query, enc *tensor.Tensor, lens []int) *tensor.Tensor {
	S, M, _ := validate("Cosine.Weights", query, enc, lens)
	e := a.Energies(query, enc)
	negInf := float32(math.Inf(-1))
	for s := 0; s < S; s++ {
		for m := 0; m < M; m++ {
			if s >= lens[m] {
				e.Set(negInf, s, m)
			}
		}
	}
	return tensor.SoftmaxColumns(e)
}

// Context implements Strategy.
func (a *Cosine) Context(query, enc *tensor.Tensor, lens []int) *tensor.Tensor {
	alpha := a.Weights(query, enc, lens)
	es := enc.Shape()
	M, D := es[1], es[2]
	out := tensor.Zeros(tensor.Shape{M, D})
	encData := enc.Data()

	parallel.ForRows(M, a.Parallel, func(lo, hi int) {
		for m := lo; m < hi; m++ {
			dst := out.Row(m)
			for s := 0; s < lens[m]; s++ {
				w := alpha.At(s, m)
				h := encData[(s*M+m)*D : (s*M+m+1)*D]
				for i, v := range h {
					dst[i] += w * v
				}
			}
		}
	})
	return out
}
