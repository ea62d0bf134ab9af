package nn

import (
	"fmt"
	"math/rand"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// Embedding is a lookup table that maps token ids to dense vectors.
//
// The row at PadID is zero and stays zero, so padded positions contribute
// nothing to the recurrent input.
type Embedding struct {
	Weight   *tensor.Tensor // [NumEmbed, EmbedDim]
	NumEmbed int
	EmbedDim int
	PadID    int // -1 disables padding
}

// NewEmbedding creates an Embedding with N(0, 1) weights.
func NewEmbedding(numEmbeddings, embeddingDim, padID int, rng *rand.Rand) *Embedding {
	w := Normal(tensor.Shape{numEmbeddings, embeddingDim}, rng)
	if padID >= 0 {
		if padID >= numEmbeddings {
			panic(fmt.Sprintf("NewEmbedding: pad id %d outside vocabulary of %d", padID, numEmbeddings))
		}
		clear(w.Row(padID))
	}
	return &Embedding{
		Weight:   w,
		NumEmbed: numEmbeddings,
		EmbedDim: embeddingDim,
		PadID:    padID,
	}
}

// Forward looks up ids and returns [len(ids), EmbedDim].
func (e *Embedding) Forward(ids []int) *tensor.Tensor {
	out := tensor.Zeros(tensor.Shape{len(ids), e.EmbedDim})
	for i, id := range ids {
		if id < 0 || id >= e.NumEmbed {
			panic(fmt.Sprintf("Embedding.Forward: token id %d outside vocabulary of %d", id, e.NumEmbed))
		}
		copy(out.Row(i), e.Weight.Row(id))
	}
	return out
}

// StateDict implements Module.
func (e *Embedding) StateDict(prefix string, dst StateDict) {
	dst[Key(prefix, "weight")] = e.Weight
}

// LoadStateDict implements Module.
func (e *Embedding) LoadStateDict(prefix string, src StateDict) error {
	return loadInto(e.Weight, src, Key(prefix, "weight"))
}
