// Package beam implements the beam-search controller: the pure state
// transition that extends K hypotheses per batch element by every
// vocabulary token and keeps the K best.
//
// Rows of every per-hypothesis array are laid out element-major: row
// m*K+k is hypothesis k of batch element m.
package beam

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// State is the set of hypotheses for a batch after some number of steps.
type State struct {
	Batch int // M
	Width int // K

	// Tokens[m*K+k] is the history of hypothesis k of element m, starting
	// with the start-of-sequence token. Every history has Steps()+1 tokens.
	Tokens [][]int

	// LogProb[m*K+k] is the cumulative log-probability of that hypothesis.
	LogProb []float32

	// Hidden holds one decoder state row per hypothesis.
	Hidden nn.HiddenState
}

// NewState seeds a beam from the first decoder state of each element
// (hidden has M rows). Every element's state is copied into its K slots.
// Slot 0 starts with log-probability 0 and the other slots with -Inf, so the
// first Update picks K distinct extensions of the one real hypothesis
// instead of K copies of the same one.
func NewState(hidden nn.HiddenState, width, sos int) State {
	if width < 1 {
		panic(fmt.Sprintf("beam.NewState: width must be >= 1, got %d", width))
	}
	m := hidden.Rows()
	idx := make([]int, 0, m*width)
	for i := 0; i < m; i++ {
		for k := 0; k < width; k++ {
			idx = append(idx, i)
		}
	}

	tokens := make([][]int, m*width)
	logProb := make([]float32, m*width)
	negInf := float32(math.Inf(-1))
	for r := range tokens {
		tokens[r] = []int{sos}
		if r%width != 0 {
			logProb[r] = negInf
		}
	}

	return State{
		Batch:   m,
		Width:   width,
		Tokens:  tokens,
		LogProb: logProb,
		Hidden:  hidden.GatherRows(idx),
	}
}

// Steps returns how many tokens have been appended after the start token.
func (s State) Steps() int {
	return len(s.Tokens[0]) - 1
}

// Row returns the flat row of hypothesis k of element m.
func (s State) Row(m, k int) int {
	return m*s.Width + k
}

// DecodeFlatIndex maps an index into the flattened [K, vocab] candidate
// grid of one element back to (hypothesis, token).
func DecodeFlatIndex(flat, vocab int) (path, token int) {
	if vocab < 1 || flat < 0 {
		panic(fmt.Sprintf("beam.DecodeFlatIndex: invalid index %d for vocabulary %d", flat, vocab))
	}
	return flat / vocab, flat % vocab
}

// TopK returns the indices of the k largest scores, best first.
//
// Equal scores are ordered by lower index; over a flattened [K, vocab] grid
// that is the lower (path, token) pair. NaN ranks below every number.
func TopK(scores []float32, k int) []int {
	if k < 1 || k > len(scores) {
		panic(fmt.Sprintf("beam.TopK: k=%d for %d scores", k, len(scores)))
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int {
		if c := compareDesc(scores[a], scores[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return idx[:k]
}

func compareDesc(a, b float32) int {
	aNaN, bNaN := math.IsNaN(float64(a)), math.IsNaN(float64(b))
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmp.Compare(b, a)
}

// Update advances the beam by one step.
//
// hidden is the decoder state produced from every current hypothesis
// (M*K rows) and logpy [M*K, V] the next-token log-probabilities for each.
// logpy is used as given; it is not renormalized.
//
// For each element the K*V candidates score LogProb[k] + logpy[k, v]; the K
// best survive. A survivor may extend a different hypothesis than the one
// that held its slot before, so histories and both parts of the hidden state
// are gathered by the surviving path index. s is not modified.
func Update(s State, hidden nn.HiddenState, logpy *tensor.Tensor) State {
	rows := s.Batch * s.Width
	shape := logpy.Shape()
	if len(shape) != 2 || shape[0] != rows {
		panic(fmt.Sprintf("beam.Update: log-probabilities %v for %d hypotheses", shape, rows))
	}
	if hidden.Rows() != rows {
		panic(fmt.Sprintf("beam.Update: hidden state has %d rows for %d hypotheses", hidden.Rows(), rows))
	}
	V := shape[1]
	K := s.Width
	if V < 1 {
		panic("beam.Update: empty vocabulary")
	}

	next := State{
		Batch:   s.Batch,
		Width:   K,
		Tokens:  make([][]int, rows),
		LogProb: make([]float32, rows),
	}
	gather := make([]int, rows)
	candidates := make([]float32, K*V)

	for m := 0; m < s.Batch; m++ {
		for k := 0; k < K; k++ {
			r := s.Row(m, k)
			base := s.LogProb[r]
			dst := candidates[k*V : (k+1)*V]
			for v, lp := range logpy.Row(r) {
				dst[v] = base + lp
			}
		}

		for j, flat := range TopK(candidates, K) {
			path, token := DecodeFlatIndex(flat, V)
			src := s.Row(m, path)
			dst := s.Row(m, j)

			history := make([]int, len(s.Tokens[src]), len(s.Tokens[src])+1)
			copy(history, s.Tokens[src])
			next.Tokens[dst] = append(history, token)
			next.LogProb[dst] = candidates[flat]
			gather[dst] = src
		}
	}

	next.Hidden = hidden.GatherRows(gather)
	return next
}

// MaskFinished returns a copy of logpy in which every hypothesis whose
// last token is eos can only be extended by eos, at no cost. Finished
// hypotheses then keep their score while unfinished ones compete.
func MaskFinished(s State, logpy *tensor.Tensor, eos int) *tensor.Tensor {
	out := logpy.Clone()
	negInf := float32(math.Inf(-1))
	for r, history := range s.Tokens {
		if history[len(history)-1] != eos {
			continue
		}
		row := out.Row(r)
		for v := range row {
			row[v] = negInf
		}
		row[eos] = 0
	}
	return out
}

// Finished reports whether every live hypothesis has emitted eos.
// Hypotheses at -Inf are dead slots (width wider than the reachable
// candidates) and are ignored.
func Finished(s State, eos int) bool {
	for r, history := range s.Tokens {
		if math.IsInf(float64(s.LogProb[r]), -1) {
			continue
		}
		if len(history) < 2 || history[len(history)-1] != eos {
			return false
		}
	}
	return true
}

// Best returns the slot of the highest scoring hypothesis of element m.
// Ties go to the lower slot.
func Best(s State, m int) int {
	best := 0
	for k := 1; k < s.Width; k++ {
		if s.LogProb[s.Row(m, k)] > s.LogProb[s.Row(m, best)] {
			best = k
		}
	}
	return best
}
