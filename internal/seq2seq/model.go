// Package seq2seq assembles the encoder, decoder, attention strategy and
// beam search into a translation model.
package seq2seq

import (
	"fmt"
	"math/rand"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/attention"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/beam"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/config"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// Model is an encoder-decoder translation model.
type Model struct {
	Config  config.Config
	Encoder *Encoder
	Decoder *Decoder
}

// New builds a randomly initialized model. A nil rng is seeded from
// cfg.Seed.
func New(cfg config.Config, rng *rand.Rand) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		//nolint:gosec // G404: weight initialization, not security sensitive
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	cell, _ := cfg.CellKind()
	kind, _ := cfg.AttentionKind()
	m := cfg.Model
	hidden := cfg.DecoderHiddenSize()

	enc := NewEncoder(m.SourceVocabSize, m.WordEmbeddingSize, m.EncoderHiddenSize, m.EncoderLayers,
		cell, cfg.Tokens.SourcePad, rng)
	dec := NewDecoder(m.TargetVocabSize, m.WordEmbeddingSize, hidden, cell,
		cfg.Tokens.TargetEOS, NewStrategy(kind, hidden, m.Heads, rng), rng)

	return &Model{Config: cfg, Encoder: enc, Decoder: dec}, nil
}

// NewStrategy creates the attention strategy for kind.
func NewStrategy(kind attention.Kind, hidden, heads int, rng *rand.Rand) attention.Strategy {
	switch kind {
	case attention.KindSingle:
		return attention.NewCosine()
	case attention.KindMultiHead:
		return attention.NewMultiHead(hidden, heads, rng)
	default:
		return attention.None{}
	}
}

// Encode runs the encoder over a time-major source batch.
func (mdl *Model) Encode(F [][]int, lens []int) *tensor.Tensor {
	return mdl.Encoder.Forward(F, lens, 0)
}

// TeacherForcingLogits feeds the reference target E (time-major, T steps)
// into the decoder and returns the logits predicting E[1:], one [M, V]
// tensor per step.
func (mdl *Model) TeacherForcingLogits(h *tensor.Tensor, lens []int, E [][]int) []*tensor.Tensor {
	if len(E) < 2 {
		panic(fmt.Sprintf("TeacherForcingLogits: need at least 2 target steps, got %d", len(E)))
	}
	state := mdl.Decoder.FirstHiddenState(h, lens)
	logits := make([]*tensor.Tensor, len(E)-1)
	for t := range logits {
		logits[t], state = mdl.Decoder.Step(E[t], state, h, lens)
	}
	return logits
}

// BeamSearch translates a time-major source batch. Decoding stops after
// Decode.MaxSteps steps or once every hypothesis has produced the end
// token.
func (mdl *Model) BeamSearch(F [][]int, lens []int) Result {
	return mdl.BeamSearchWidth(F, lens, mdl.Config.Decode.BeamWidth, mdl.Config.Decode.MaxSteps)
}

// Translate returns the best beam search hypothesis of every element.
func (mdl *Model) Translate(F [][]int, lens []int) [][]int {
	return mdl.BeamSearch(F, lens).TopAll()
}

// BeamSearchWidth is BeamSearch with an explicit width and step limit.
func (mdl *Model) BeamSearchWidth(F [][]int, lens []int, width, maxSteps int) Result {
	if width < 1 || maxSteps < 1 {
		panic(fmt.Sprintf("BeamSearch: width (%d) and steps (%d) must be positive", width, maxSteps))
	}
	sos, eos := mdl.Config.Tokens.TargetSOS, mdl.Config.Tokens.TargetEOS

	h := mdl.Encode(F, lens)
	s := beam.NewState(mdl.Decoder.FirstHiddenState(h, lens), width, sos)
	hK := repeatBatch(h, width)
	lensK := attention.RepeatInterleave(lens, width)

	prev := make([]int, len(s.Tokens))
	for step := 0; step < maxSteps; step++ {
		for r, history := range s.Tokens {
			prev[r] = history[len(history)-1]
		}
		logits, hidden := mdl.Decoder.Step(prev, s.Hidden, hK, lensK)
		logpy := beam.MaskFinished(s, tensor.LogSoftmaxRows(logits), eos)
		s = beam.Update(s, hidden, logpy)
		if beam.Finished(s, eos) {
			break
		}
	}
	return Result{state: s}
}

// repeatBatch turns h [S, M, D] into [S, M*K, D] where column m*K+k is a
// copy of column m.
func repeatBatch(h *tensor.Tensor, k int) *tensor.Tensor {
	shape := h.Shape()
	S, M, D := shape[0], shape[1], shape[2]
	src := h.Reshape(S*M, D)
	out := tensor.Zeros(tensor.Shape{S * M * k, D})
	for s := 0; s < S; s++ {
		for m := 0; m < M; m++ {
			row := src.Row(s*M + m)
			for j := 0; j < k; j++ {
				copy(out.Row((s*M+m)*k+j), row)
			}
		}
	}
	return out.Reshape(S, M*k, D)
}

// StateDict returns every parameter of the model keyed by its path.
func (mdl *Model) StateDict() nn.StateDict {
	sd := nn.StateDict{}
	mdl.Encoder.StateDict("encoder", sd)
	mdl.Decoder.StateDict("decoder", sd)
	return sd
}

// LoadStateDict copies parameters from sd into the model.
func (mdl *Model) LoadStateDict(sd nn.StateDict) error {
	if err := mdl.Encoder.LoadStateDict("encoder", sd); err != nil {
		return fmt.Errorf("failed to load encoder: %w", err)
	}
	if err := mdl.Decoder.LoadStateDict("decoder", sd); err != nil {
		return fmt.Errorf("failed to load decoder: %w", err)
	}
	return nil
}
