package seq2seq

import (
	"fmt"
	"math/rand"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/attention"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// Decoder produces next-token logits one step at a time.
//
// The cell input is the embedding of the previous token, followed by the
// attention context of the previous state when an attention strategy is in
// use.
type Decoder struct {
	Embedding *nn.Embedding
	Cell      nn.Cell
	Output    *nn.Linear // [vocab, hidden]
	Attention attention.Strategy
}

// NewDecoder creates a decoder. hidden must equal the encoder output size.
func NewDecoder(vocab, embed, hidden int, kind nn.CellKind, padID int, att attention.Strategy, rng *rand.Rand) *Decoder {
	if att == nil {
		att = attention.None{}
	}
	in := embed
	if att.Kind() != attention.KindNone {
		in += hidden
	}
	return &Decoder{
		Embedding: nn.NewEmbedding(vocab, embed, padID, rng),
		Cell:      nn.NewCell(kind, in, hidden, rng),
		Output:    nn.NewLinear(hidden, vocab, true, rng),
		Attention: att,
	}
}

// VocabSize returns the number of output classes.
func (d *Decoder) VocabSize() int {
	return d.Output.OutFeatures()
}

// FirstHiddenState derives the initial decoder state from the encoder
// output h [S, M, D].
//
// Without attention the state is the forward half of h at each element's
// last valid position joined with the backward half at position 0. With
// attention it starts at zero. An LSTM memory cell always starts at zero.
func (d *Decoder) FirstHiddenState(h *tensor.Tensor, lens []int) nn.HiddenState {
	shape := h.Shape()
	if len(shape) != 3 || shape[2] != d.Cell.HiddenSize() || shape[1] != len(lens) {
		panic(fmt.Sprintf("Decoder.FirstHiddenState: encoder output %v incompatible with hidden size %d and %d lengths",
			shape, d.Cell.HiddenSize(), len(lens)))
	}
	S, M, D := shape[0], shape[1], shape[2]
	state := d.Cell.InitialState(M)
	if d.Attention.Kind() != attention.KindNone {
		return state
	}

	half := D / 2
	rows := h.Reshape(S*M, D)
	for m, n := range lens {
		dst := state.H.Row(m)
		copy(dst[:half], rows.Row((n-1)*M + m)[:half])
		copy(dst[half:], rows.Row(m)[half:])
	}
	return state
}

// Step consumes the previous tokens [M] and state, and returns the logits
// [M, V] together with the next state. h and lens describe the encoder
// output each row attends to.
func (d *Decoder) Step(prev []int, state nn.HiddenState, h *tensor.Tensor, lens []int) (*tensor.Tensor, nn.HiddenState) {
	x := d.Embedding.Forward(prev)
	if c := d.Attention.Context(state.Output(), h, lens); c != nil {
		x = tensor.ConcatColumns(x, c)
	}
	next := d.Cell.Step(x, state)
	return d.Output.Forward(next.Output()), next
}

// StateDict implements nn.Module.
func (d *Decoder) StateDict(prefix string, dst nn.StateDict) {
	d.Embedding.StateDict(nn.Key(prefix, "embedding"), dst)
	d.Cell.StateDict(nn.Key(prefix, "cell"), dst)
	d.Output.StateDict(nn.Key(prefix, "ff"), dst)
	d.Attention.StateDict(nn.Key(prefix, "attention"), dst)
}

// LoadStateDict implements nn.Module.
func (d *Decoder) LoadStateDict(prefix string, src nn.StateDict) error {
	if err := d.Embedding.LoadStateDict(nn.Key(prefix, "embedding"), src); err != nil {
		return err
	}
	if err := d.Cell.LoadStateDict(nn.Key(prefix, "cell"), src); err != nil {
		return err
	}
	if err := d.Output.LoadStateDict(nn.Key(prefix, "ff"), src); err != nil {
		return err
	}
	return d.Attention.LoadStateDict(nn.Key(prefix, "attention"), src)
}
