// Package attention computes the context vector a recurrent decoder reads
// from the encoder at every step.
//
// Decoders receive a Strategy and never branch on the attention variant:
//
//	None      no context, the decoder input is the token embedding only
//	Cosine    single-head cosine-similarity attention
//	MultiHead projected multi-head attention built on Cosine
package attention

import (
	"fmt"
	"strings"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// Kind names an attention variant.
type Kind int

// Attention variants.
const (
	KindNone Kind = iota
	KindSingle
	KindMultiHead
)

// String returns the name used in configuration files.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSingle:
		return "single"
	case KindMultiHead:
		return "multihead"
	default:
		return "unknown"
	}
}

// ParseKind parses "none", "single" or "multihead".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return KindNone, nil
	case "single":
		return KindSingle, nil
	case "multihead", "multi-head":
		return KindMultiHead, nil
	default:
		return 0, fmt.Errorf("unknown attention kind %q (want none, single or multihead)", s)
	}
}

// Strategy produces a context vector for each batch row.
type Strategy interface {
	nn.Module

	// Context returns [M, D] given the decoder state query [M, D], encoder
	// states enc [S, M, D] and the true source length of every row.
	// It returns nil when the strategy provides no context.
	Context(query, enc *tensor.Tensor, lens []int) *tensor.Tensor

	Kind() Kind
}

// None is the strategy of a decoder without attention.
type None struct{}

// Context implements Strategy.
func (None) Context(_, _ *tensor.Tensor, _ []int) *tensor.Tensor { return nil }

// Kind implements Strategy.
func (None) Kind() Kind { return KindNone }

// StateDict implements nn.Module.
func (None) StateDict(string, nn.StateDict) {}

// LoadStateDict implements nn.Module.
func (None) LoadStateDict(string, nn.StateDict) error { return nil }

// validate checks the shapes shared by every strategy and the source length
// precondition: each row needs at least one real position.
func validate(op string, query, enc *tensor.Tensor, lens []int) (s, m, d int) {
	qs, es := query.Shape(), enc.Shape()
	if len(qs) != 2 {
		panic(fmt.Sprintf("%s: query must be 2D [batch, hidden], got %v", op, qs))
	}
	if len(es) != 3 {
		panic(fmt.Sprintf("%s: encoder states must be 3D [source, batch, hidden], got %v", op, es))
	}
	s, m, d = es[0], es[1], es[2]
	if qs[0] != m || qs[1] != d {
		panic(fmt.Sprintf("%s: query %v does not match encoder states %v", op, qs, es))
	}
	if len(lens) != m {
		panic(fmt.Sprintf("%s: %d source lengths for batch of %d", op, len(lens), m))
	}
	for i, l := range lens {
		if l < 1 || l > s {
			panic(fmt.Sprintf("%s: source length %d of row %d outside [1, %d]", op, l, i, s))
		}
	}
	return s, m, d
}
