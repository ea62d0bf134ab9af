package nn

import (
	"fmt"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// HiddenState is the state a recurrent cell carries between time steps.
//
// H is the recurrent output [rows, hidden]. C is the LSTM memory cell of the
// same shape and is nil for cells without one. Everything downstream of the
// cell (attention, output projection) reads Output(); operations that
// re-index or rewrite the state go through GatherRows and Map so that both
// parts always move together.
type HiddenState struct {
	H *tensor.Tensor
	C *tensor.Tensor
}

// Output returns the part of the state consumed downstream.
func (s HiddenState) Output() *tensor.Tensor {
	return s.H
}

// IsComposite reports whether the state carries a memory cell.
func (s HiddenState) IsComposite() bool {
	return s.C != nil
}

// Rows returns the number of rows (batch elements or hypotheses).
func (s HiddenState) Rows() int {
	return s.H.Dim(0)
}

// Map applies f to every component.
func (s HiddenState) Map(f func(*tensor.Tensor) *tensor.Tensor) HiddenState {
	out := HiddenState{H: f(s.H)}
	if s.C != nil {
		out.C = f(s.C)
	}
	return out
}

// GatherRows returns a state whose row i is row idx[i] of s, for every
// component.
func (s HiddenState) GatherRows(idx []int) HiddenState {
	return s.Map(func(t *tensor.Tensor) *tensor.Tensor {
		return t.GatherRows(idx)
	})
}

// Where returns a state taking row r from s when keep[r] is set and from
// other otherwise. Both states must have the same layout.
func (s HiddenState) Where(keep []bool, other HiddenState) HiddenState {
	if s.IsComposite() != other.IsComposite() {
		panic("HiddenState.Where: mixing composite and plain states")
	}
	if len(keep) != s.Rows() || other.Rows() != s.Rows() {
		panic(fmt.Sprintf("HiddenState.Where: %d mask entries for %d and %d rows", len(keep), s.Rows(), other.Rows()))
	}
	pick := func(a, b *tensor.Tensor) *tensor.Tensor {
		out := a.Clone()
		for r, k := range keep {
			if !k {
				copy(out.Row(r), b.Row(r))
			}
		}
		return out
	}
	out := HiddenState{H: pick(s.H, other.H)}
	if s.C != nil {
		out.C = pick(s.C, other.C)
	}
	return out
}
