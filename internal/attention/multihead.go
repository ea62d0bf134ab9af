package attention

import (
	"fmt"
	"math/rand"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// MultiHead splits the hidden features into Heads equal slices and runs
// Cosine attention once per slice.
//
// Architecture:
//
//	q = WTilde(query)            [M, D]   -> [M*H, D/H]
//	k = W(enc)                   [S, M, D] -> [S, M*H, D/H]
//	c = Cosine(q, k, lens per head)        -> [M*H, D/H] -> [M, D]
//	out = Q(c)
//
// Heads are folded into the batch dimension, so one Cosine call covers
// every head of every row. Because tensors are row-major, the folds are
// views: feature block h of row m becomes row m*H+h.
type MultiHead struct {
	W      *nn.Linear // key projection [D, D], no bias
	WTilde *nn.Linear // query projection [D, D], no bias
	Q      *nn.Linear // output projection [D, D], no bias
	Heads  int
	Hidden int
	cosine *Cosine
}

// NewMultiHead creates a multi-head strategy with Xavier-initialized
// projections. Panics unless hidden is divisible by heads.
func NewMultiHead(hidden, heads int, rng *rand.Rand) *MultiHead {
	checkHeads(hidden, heads)
	return &MultiHead{
		W:      nn.NewLinear(hidden, hidden, false, rng),
		WTilde: nn.NewLinear(hidden, hidden, false, rng),
		Q:      nn.NewLinear(hidden, hidden, false, rng),
		Heads:  heads,
		Hidden: hidden,
		cosine: NewCosine(),
	}
}

// NewIdentityMultiHead creates a multi-head strategy whose projections are
// all the identity.
func NewIdentityMultiHead(hidden, heads int) *MultiHead {
	checkHeads(hidden, heads)
	return &MultiHead{
		W:      nn.Identity(hidden),
		WTilde: nn.Identity(hidden),
		Q:      nn.Identity(hidden),
		Heads:  heads,
		Hidden: hidden,
		cosine: NewCosine(),
	}
}

func checkHeads(hidden, heads int) {
	if heads < 1 {
		panic(fmt.Sprintf("MultiHead: heads must be >= 1, got %d", heads))
	}
	if hidden%heads != 0 {
		panic(fmt.Sprintf("MultiHead: hidden size (%d) must be divisible by heads (%d)", hidden, heads))
	}
}

// Kind implements Strategy.
func (*MultiHead) Kind() Kind { return KindMultiHead }

// Context implements Strategy.
func (a *MultiHead) Context(query, enc *tensor.Tensor, lens []int) *tensor.Tensor {
	S, M, D := validate("MultiHead.Context", query, enc, lens)
	if D != a.Hidden {
		panic(fmt.Sprintf("MultiHead.Context: expected hidden size %d, got %d", a.Hidden, D))
	}
	H := a.Heads
	headDim := D / H

	q := a.WTilde.Forward(query).Reshape(M*H, headDim)
	k := a.W.Forward(enc.Reshape(S*M, D)).Reshape(S, M*H, headDim)

	c := a.cosine.Context(q, k, RepeatInterleave(lens, H))
	return a.Q.Forward(c.Reshape(M, D))
}

// StateDict implements nn.Module.
func (a *MultiHead) StateDict(prefix string, dst nn.StateDict) {
	a.W.StateDict(nn.Key(prefix, "W"), dst)
	a.WTilde.StateDict(nn.Key(prefix, "Wtilde"), dst)
	a.Q.StateDict(nn.Key(prefix, "Q"), dst)
}

// LoadStateDict implements nn.Module.
func (a *MultiHead) LoadStateDict(prefix string, src nn.StateDict) error {
	if err := a.W.LoadStateDict(nn.Key(prefix, "W"), src); err != nil {
		return err
	}
	if err := a.WTilde.LoadStateDict(nn.Key(prefix, "Wtilde"), src); err != nil {
		return err
	}
	return a.Q.LoadStateDict(nn.Key(prefix, "Q"), src)
}

// RepeatInterleave repeats every element of xs n times, keeping order:
// [1 2] with n=2 gives [1 1 2 2].
func RepeatInterleave(xs []int, n int) []int {
	out := make([]int, 0, len(xs)*n)
	for _, x := range xs {
		for i := 0; i < n; i++ {
			out = append(out, x)
		}
	}
	return out
}
