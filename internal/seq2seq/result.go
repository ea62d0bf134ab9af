package seq2seq

import (
	"slices"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/beam"
)

// Result holds the final hypotheses of a beam search.
type Result struct {
	state beam.State
}

// Batch returns the number of translated elements.
func (r Result) Batch() int { return r.state.Batch }

// Width returns the number of hypotheses per element.
func (r Result) Width() int { return r.state.Width }

// Steps returns the number of decoding steps taken.
func (r Result) Steps() int { return r.state.Steps() }

// Tokens returns hypothesis k of element m, starting with the start token.
func (r Result) Tokens(m, k int) []int {
	return slices.Clone(r.state.Tokens[r.state.Row(m, k)])
}

// LogProb returns the accumulated log-probability of hypothesis k of
// element m.
func (r Result) LogProb(m, k int) float32 {
	return r.state.LogProb[r.state.Row(m, k)]
}

// Top returns the best hypothesis of element m.
func (r Result) Top(m int) []int {
	return r.Tokens(m, beam.Best(r.state, m))
}

// TopAll returns the best hypothesis of every element.
func (r Result) TopAll() [][]int {
	out := make([][]int, r.state.Batch)
	for m := range out {
		out[m] = r.Top(m)
	}
	return out
}
