package seq2seq

import (
	"fmt"
	"math/rand"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// Bidirectional is one encoder layer: a cell reading left to right and one
// reading right to left.
type Bidirectional struct {
	Forward  nn.Cell
	Backward nn.Cell
}

// Encoder embeds a padded source batch and runs a stack of bidirectional
// recurrent layers over it.
type Encoder struct {
	Embedding  *nn.Embedding
	Layers     []Bidirectional
	HiddenSize int // per direction
}

// NewEncoder creates an encoder whose output rows have 2*hidden features.
func NewEncoder(vocab, embed, hidden, layers int, kind nn.CellKind, padID int, rng *rand.Rand) *Encoder {
	if layers < 1 {
		panic(fmt.Sprintf("NewEncoder: need at least one layer, got %d", layers))
	}
	e := &Encoder{
		Embedding:  nn.NewEmbedding(vocab, embed, padID, rng),
		Layers:     make([]Bidirectional, layers),
		HiddenSize: hidden,
	}
	in := embed
	for l := range e.Layers {
		e.Layers[l] = Bidirectional{
			Forward:  nn.NewCell(kind, in, hidden, rng),
			Backward: nn.NewCell(kind, in, hidden, rng),
		}
		in = 2 * hidden
	}
	return e
}

// OutputSize returns the feature width of encoder states.
func (e *Encoder) OutputSize() int {
	return 2 * e.HiddenSize
}

// Forward encodes F, given time-major as F[t][m], into h [S, M, 2*hidden].
//
// Element m is read only over its first lens[m] steps: the backward
// direction starts from the zero state at position lens[m]-1, and every
// position t >= lens[m] of the output is set to hPad.
func (e *Encoder) Forward(F [][]int, lens []int, hPad float32) *tensor.Tensor {
	S, M := checkSource(F, lens)

	xs := make([]*tensor.Tensor, S)
	for t, ids := range F {
		xs[t] = e.Embedding.Forward(ids)
	}
	for _, layer := range e.Layers {
		xs = layer.run(xs, lens)
	}

	D := e.OutputSize()
	h := tensor.Full(tensor.Shape{S, M, D}, hPad)
	rows := h.Reshape(S*M, D)
	for t, x := range xs {
		for m := 0; m < M; m++ {
			if t < lens[m] {
				copy(rows.Row(t*M+m), x.Row(m))
			}
		}
	}
	return h
}

func (b Bidirectional) run(xs []*tensor.Tensor, lens []int) []*tensor.Tensor {
	S, M := len(xs), len(lens)

	fwd := make([]*tensor.Tensor, S)
	state := b.Forward.InitialState(M)
	for t := 0; t < S; t++ {
		state = b.Forward.Step(xs[t], state)
		fwd[t] = state.Output()
	}

	bwd := make([]*tensor.Tensor, S)
	zero := b.Backward.InitialState(M)
	state = zero
	valid := make([]bool, M)
	for t := S - 1; t >= 0; t-- {
		for m, n := range lens {
			valid[m] = t < n
		}
		state = b.Backward.Step(xs[t], state).Where(valid, zero)
		bwd[t] = state.Output()
	}

	out := make([]*tensor.Tensor, S)
	for t := range out {
		out[t] = tensor.ConcatColumns(fwd[t], bwd[t])
	}
	return out
}

// StateDict implements nn.Module.
func (e *Encoder) StateDict(prefix string, dst nn.StateDict) {
	e.Embedding.StateDict(nn.Key(prefix, "embedding"), dst)
	for l, layer := range e.Layers {
		layer.Forward.StateDict(nn.Key(prefix, fmt.Sprintf("rnn.l%d.forward", l)), dst)
		layer.Backward.StateDict(nn.Key(prefix, fmt.Sprintf("rnn.l%d.backward", l)), dst)
	}
}

// LoadStateDict implements nn.Module.
func (e *Encoder) LoadStateDict(prefix string, src nn.StateDict) error {
	if err := e.Embedding.LoadStateDict(nn.Key(prefix, "embedding"), src); err != nil {
		return err
	}
	for l, layer := range e.Layers {
		if err := layer.Forward.LoadStateDict(nn.Key(prefix, fmt.Sprintf("rnn.l%d.forward", l)), src); err != nil {
			return err
		}
		if err := layer.Backward.LoadStateDict(nn.Key(prefix, fmt.Sprintf("rnn.l%d.backward", l)), src); err != nil {
			return err
		}
	}
	return nil
}

func checkSource(F [][]int, lens []int) (S, M int) {
	S, M = len(F), len(lens)
	if S == 0 || M == 0 {
		panic(fmt.Sprintf("Encoder: empty source batch (%d steps, %d elements)", S, M))
	}
	for t, ids := range F {
		if len(ids) != M {
			panic(fmt.Sprintf("Encoder: step %d has %d tokens, expected %d", t, len(ids), M))
		}
	}
	for m, n := range lens {
		if n < 1 || n > S {
			panic(fmt.Sprintf("Encoder: length %d of element %d outside [1, %d]", n, m, S))
		}
	}
	return S, M
}
