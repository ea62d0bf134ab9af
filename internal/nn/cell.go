package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/parallel"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// CellKind selects the recurrent cell type.
type CellKind int

// Supported recurrent cells.
const (
	RNN CellKind = iota
	GRU
	LSTM
)

// String returns the lower-case cell name used in configuration files.
func (k CellKind) String() string {
	switch k {
	case RNN:
		return "rnn"
	case GRU:
		return "gru"
	case LSTM:
		return "lstm"
	default:
		return "unknown"
	}
}

// gates is the number of stacked gate blocks in the input/hidden weights.
func (k CellKind) gates() int {
	switch k {
	case GRU:
		return 3
	case LSTM:
		return 4
	default:
		return 1
	}
}

// ParseCellKind parses "rnn", "gru" or "lstm".
func ParseCellKind(s string) (CellKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rnn":
		return RNN, nil
	case "gru":
		return GRU, nil
	case "lstm":
		return LSTM, nil
	default:
		return 0, fmt.Errorf("unknown cell type %q (want rnn, gru or lstm)", s)
	}
}

// Cell advances a recurrent state by one time step for a whole batch.
type Cell interface {
	Module

	// Step consumes x [batch, InputSize] and the previous state and
	// returns the next state.
	Step(x *tensor.Tensor, prev HiddenState) HiddenState

	// InitialState returns the all-zero state for batch rows.
	InitialState(batch int) HiddenState

	InputSize() int
	HiddenSize() int
	Kind() CellKind
}

// Recurrent implements the Elman RNN, GRU and LSTM cells with the usual
// stacked-gate layout:
//
//	RNN:  h' = tanh(W_ih x + b_ih + W_hh h + b_hh)
//	GRU:  gates ordered (r, z, n), n = tanh(x_n + r * h_n), h' = (1-z) n + z h
//	LSTM: gates ordered (i, f, g, o), c' = f c + i g, h' = o tanh(c')
type Recurrent struct {
	kind   CellKind
	ih     *Linear // [gates*hidden, input]
	hh     *Linear // [gates*hidden, hidden]
	input  int
	hidden int
	par    parallel.Config
}

// NewCell creates a cell of the given kind with uniform initialization.
func NewCell(kind CellKind, inputSize, hiddenSize int, rng *rand.Rand) *Recurrent {
	if inputSize <= 0 || hiddenSize <= 0 {
		panic(fmt.Sprintf("NewCell: sizes must be positive, got input=%d hidden=%d", inputSize, hiddenSize))
	}
	g := kind.gates() * hiddenSize
	return &Recurrent{
		kind: kind,
		ih: NewLinearFromWeights(
			RecurrentUniform(hiddenSize, tensor.Shape{g, inputSize}, rng),
			RecurrentUniform(hiddenSize, tensor.Shape{g}, rng),
		),
		hh: NewLinearFromWeights(
			RecurrentUniform(hiddenSize, tensor.Shape{g, hiddenSize}, rng),
			RecurrentUniform(hiddenSize, tensor.Shape{g}, rng),
		),
		input:  inputSize,
		hidden: hiddenSize,
		par:    parallel.Default(),
	}
}

// InputSize implements Cell.
func (c *Recurrent) InputSize() int { return c.input }

// HiddenSize implements Cell.
func (c *Recurrent) HiddenSize() int { return c.hidden }

// Kind implements Cell.
func (c *Recurrent) Kind() CellKind { return c.kind }

// InitialState implements Cell.
func (c *Recurrent) InitialState(batch int) HiddenState {
	s := HiddenState{H: tensor.Zeros(tensor.Shape{batch, c.hidden})}
	if c.kind == LSTM {
		s.C = tensor.Zeros(tensor.Shape{batch, c.hidden})
	}
	return s
}

// Step implements Cell.
func (c *Recurrent) Step(x *tensor.Tensor, prev HiddenState) HiddenState {
	if prev.IsComposite() != (c.kind == LSTM) {
		panic(fmt.Sprintf("%s cell: state composite=%v does not match cell", c.kind, prev.IsComposite()))
	}
	batch := x.Dim(0)
	if prev.Rows() != batch {
		panic(fmt.Sprintf("%s cell: input has %d rows, state has %d", c.kind, batch, prev.Rows()))
	}

	gi := c.ih.Forward(x)      // [batch, gates*hidden]
	gh := c.hh.Forward(prev.H) // [batch, gates*hidden]
	next := c.InitialState(batch)
	H := c.hidden

	parallel.ForRows(batch, c.par, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			xg, hg := gi.Row(r), gh.Row(r)
			h, hOut := prev.H.Row(r), next.H.Row(r)
			switch c.kind {
			case RNN:
				for j := 0; j < H; j++ {
					hOut[j] = Tanh(xg[j] + hg[j])
				}
			case GRU:
				for j := 0; j < H; j++ {
					reset := Sigmoid(xg[j] + hg[j])
					update := Sigmoid(xg[H+j] + hg[H+j])
					n := Tanh(xg[2*H+j] + reset*hg[2*H+j])
					hOut[j] = (1-update)*n + update*h[j]
				}
			case LSTM:
				cPrev, cOut := prev.C.Row(r), next.C.Row(r)
				for j := 0; j < H; j++ {
					in := Sigmoid(xg[j] + hg[j])
					forget := Sigmoid(xg[H+j] + hg[H+j])
					g := Tanh(xg[2*H+j] + hg[2*H+j])
					out := Sigmoid(xg[3*H+j] + hg[3*H+j])
					cOut[j] = forget*cPrev[j] + in*g
					hOut[j] = out * Tanh(cOut[j])
				}
			}
		}
	})

	return next
}

// StateDict implements Module.
func (c *Recurrent) StateDict(prefix string, dst StateDict) {
	dst[Key(prefix, "weight_ih")] = c.ih.Weight()
	dst[Key(prefix, "bias_ih")] = c.ih.Bias()
	dst[Key(prefix, "weight_hh")] = c.hh.Weight()
	dst[Key(prefix, "bias_hh")] = c.hh.Bias()
}

// LoadStateDict implements Module.
func (c *Recurrent) LoadStateDict(prefix string, src StateDict) error {
	for name, t := range map[string]*tensor.Tensor{
		"weight_ih": c.ih.Weight(),
		"bias_ih":   c.ih.Bias(),
		"weight_hh": c.hh.Weight(),
		"bias_hh":   c.hh.Bias(),
	} {
		if err := loadInto(t, src, Key(prefix, name)); err != nil {
			return fmt.Errorf("%s cell: %w", c.kind, err)
		}
	}
	return nil
}
