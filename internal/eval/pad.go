package eval

import "fmt"

// Pad lays out sentences time-major, right-padding each with pad to the
// longest length. It returns the padded batch and the original lengths.
func Pad(seqs [][]int, pad int) ([][]int, []int) {
	lens := make([]int, len(seqs))
	longest := 0
	for m, s := range seqs {
		lens[m] = len(s)
		longest = max(longest, len(s))
	}
	out := make([][]int, longest)
	for t := range out {
		out[t] = make([]int, len(seqs))
		for m, s := range seqs {
			if t < len(s) {
				out[t][m] = s[t]
			} else {
				out[t][m] = pad
			}
		}
	}
	return out, lens
}

// Columns transposes a time-major batch into one sequence per element.
func Columns(batch [][]int) [][]int {
	if len(batch) == 0 {
		return nil
	}
	M := len(batch[0])
	out := make([][]int, M)
	for m := range out {
		out[m] = make([]int, len(batch))
	}
	for t, row := range batch {
		if len(row) != M {
			panic(fmt.Sprintf("Columns: step %d has %d entries, expected %d", t, len(row), M))
		}
		for m, id := range row {
			out[m][t] = id
		}
	}
	return out
}

// NewBatch builds a Batch from source and target token ids. Sources are
// padded with srcPad; targets are wrapped in sos/eos and padded with eos.
func NewBatch(sources, targets [][]int, srcPad, sos, eos int) Batch {
	if len(sources) != len(targets) {
		panic(fmt.Sprintf("NewBatch: %d sources for %d targets", len(sources), len(targets)))
	}
	F, lens := Pad(sources, srcPad)
	wrapped := make([][]int, len(targets))
	for m, t := range targets {
		w := make([]int, 0, len(t)+2)
		w = append(w, sos)
		w = append(w, t...)
		wrapped[m] = append(w, eos)
	}
	E, _ := Pad(wrapped, eos)
	return Batch{Source: F, Lens: lens, Target: E}
}
