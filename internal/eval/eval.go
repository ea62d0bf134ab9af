// Package eval scores a translation model over batches of parallel data.
package eval

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/bleu"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// BLEUOrder is the n-gram order used for evaluation.
const BLEUOrder = 4

// ErrEmptySource is returned when a source yields no batches.
var ErrEmptySource = errors.New("eval: source has no batches")

// Batch is a padded, time-major batch of parallel sentences.
//
// Source[t][m] is token t of source sentence m and Lens[m] its unpadded
// length. Target[t][m] is token t of the reference translation, starting
// with the start token and right-padded with the end token.
type Batch struct {
	Source [][]int
	Lens   []int
	Target [][]int
}

// Size returns the number of sentence pairs in b.
func (b Batch) Size() int {
	return len(b.Lens)
}

// References returns the reference translations, one per element.
func (b Batch) References() [][]int {
	return Columns(b.Target)
}

// Translator produces the best translation of every element of a batch.
type Translator interface {
	Translate(F [][]int, lens []int) [][]int
}

// Scorer produces teacher-forced logits.
type Scorer interface {
	Encode(F [][]int, lens []int) *tensor.Tensor
	TeacherForcingLogits(h *tensor.Tensor, lens []int, E [][]int) []*tensor.Tensor
}

// Source yields batches until it is exhausted.
type Source interface {
	Next() (Batch, bool)
}

// SliceSource serves batches from memory.
type SliceSource struct {
	batches []Batch
	pos     int
}

// NewSliceSource returns a Source over batches.
func NewSliceSource(batches ...Batch) *SliceSource {
	return &SliceSource{batches: batches}
}

// Next implements Source.
func (s *SliceSource) Next() (Batch, bool) {
	if s.pos >= len(s.batches) {
		return Batch{}, false
	}
	b := s.batches[s.pos]
	s.pos++
	return b, true
}

// Reset rewinds the source to its first batch.
func (s *SliceSource) Reset() {
	s.pos = 0
}

// StripSpecial returns seq without any sos or eos tokens.
func StripSpecial(seq []int, sos, eos int) []int {
	out := make([]int, 0, len(seq))
	for _, id := range seq {
		if id != sos && id != eos {
			out = append(out, id)
		}
	}
	return out
}

// BatchBLEU returns the mean BLEU-4 score of cands against refs after
// removing the special tokens from both. It returns 0 for an empty batch.
func BatchBLEU(refs, cands [][]int, sos, eos int) float64 {
	if len(refs) != len(cands) {
		panic(fmt.Sprintf("BatchBLEU: %d references for %d candidates", len(refs), len(cands)))
	}
	if len(refs) == 0 {
		return 0
	}
	total := 0.0
	for i := range refs {
		total += bleu.MustScore(StripSpecial(refs[i], sos, eos), StripSpecial(cands[i], sos, eos), BLEUOrder)
	}
	return total / float64(len(refs))
}

// AverageBLEU translates every batch of src and returns the mean of the
// per-batch BLEU scores. ctx is checked between batches. Progress is
// written to logger when it is not nil.
func AverageBLEU(ctx context.Context, model Translator, src Source, sos, eos int, logger *log.Logger) (float64, error) {
	total, count := 0.0, 0
	for {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("bleu evaluation interrupted after %d batches: %w", count, err)
		}
		b, ok := src.Next()
		if !ok {
			break
		}
		score := BatchBLEU(b.References(), model.Translate(b.Source, b.Lens), sos, eos)
		total += score
		count++
		if logger != nil {
			logger.Printf("batch %d: size=%d bleu=%.4f", count, b.Size(), score)
		}
	}
	if count == 0 {
		return 0, ErrEmptySource
	}
	return total / float64(count), nil
}

// AverageLoss returns the mean over batches of the teacher-forced cross
// entropy per predicted token. Targets following the first eos of a
// sentence are ignored.
func AverageLoss(ctx context.Context, model Scorer, src Source, eos int, logger *log.Logger) (float64, error) {
	total, count := 0.0, 0
	for {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("loss evaluation interrupted after %d batches: %w", count, err)
		}
		b, ok := src.Next()
		if !ok {
			break
		}
		loss := BatchLoss(model, b, eos)
		total += loss
		count++
		if logger != nil {
			logger.Printf("batch %d: size=%d loss=%.4f", count, b.Size(), loss)
		}
	}
	if count == 0 {
		return 0, ErrEmptySource
	}
	return total / float64(count), nil
}

// BatchLoss returns the mean cross entropy of the predicted target tokens
// of b.
func BatchLoss(model Scorer, b Batch, eos int) float64 {
	h := model.Encode(b.Source, b.Lens)
	logits := model.TeacherForcingLogits(h, b.Lens, b.Target)
	targets := MaskAfterEOS(b.Target, eos)

	sum, n := 0.0, 0
	for t, l := range logits {
		s, c := nn.CrossEntropy(l, targets[t+1], IgnoreIndex)
		sum += s
		n += c
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// IgnoreIndex marks target positions excluded from the loss.
const IgnoreIndex = -1

// MaskAfterEOS returns a copy of the time-major targets E in which every
// position after the first eos of its column is IgnoreIndex.
func MaskAfterEOS(E [][]int, eos int) [][]int {
	out := make([][]int, len(E))
	var done []bool
	if len(E) > 0 {
		done = make([]bool, len(E[0]))
	}
	for t, row := range E {
		out[t] = make([]int, len(row))
		for m, id := range row {
			if done[m] {
				out[t][m] = IgnoreIndex
				continue
			}
			out[t][m] = id
			if id == eos {
				done[m] = true
			}
		}
	}
	return out
}
