package attention

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

func randomInputs(seed int64, s, m, d int) (*tensor.Tensor, *tensor.Tensor) {
	rng := rand.New(rand.NewSource(seed))
	return nn.Normal(tensor.Shape{m, d}, rng), nn.Normal(tensor.Shape{s, m, d}, rng)
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindNone, KindSingle, KindMultiHead} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("additive")
	assert.Error(t, err)
}

func TestNone_NoContext(t *testing.T) {
	q, enc := randomInputs(1, 3, 2, 4)
	assert.Nil(t, None{}.Context(q, enc, []int{3, 1}))
	assert.Equal(t, KindNone, None{}.Kind())
}

func TestCosine_Energies(t *testing.T) {
	q := tensor.New([]float32{1, 0}, tensor.Shape{1, 2})
	enc := tensor.New([]float32{
		2, 0, // s=0: same direction
		0, 3, // s=1: orthogonal
		-1, 0, // s=2: opposite
	}, tensor.Shape{3, 1, 2})
	e := NewCosine().Energies(q, enc)
	assert.InDelta(t, 1.0, e.At(0, 0), 1e-6)
	assert.InDelta(t, 0.0, e.At(1, 0), 1e-6)
	assert.InDelta(t, -1.0, e.At(2, 0), 1e-6)
}

func TestCosine_ZeroQueryIsUniform(t *testing.T) {
	_, enc := randomInputs(2, 4, 1, 3)
	w := NewCosine().Weights(tensor.Zeros(tensor.Shape{1, 3}), enc, []int{3})
	for s := 0; s < 3; s++ {
		assert.InDelta(t, 1.0/3.0, w.At(s, 0), 1e-6)
	}
	assert.Equal(t, float32(0), w.At(3, 0))
}

func TestCosine_PaddingGetsExactlyZeroWeight(t *testing.T) {
	const S, M, D = 6, 4, 5
	q, enc := randomInputs(3, S, M, D)
	lens := []int{6, 1, 3, 5}

	w := NewCosine().Weights(q, enc, lens)
	require.Equal(t, tensor.Shape{S, M}, w.Shape())
	for m := 0; m < M; m++ {
		sum := 0.0
		for s := 0; s < S; s++ {
			if s >= lens[m] {
				assert.Equal(t, float32(0), w.At(s, m), "s=%d m=%d", s, m)
			} else {
				assert.Greater(t, w.At(s, m), float32(0))
			}
			sum += float64(w.At(s, m))
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
}

func TestCosine_PaddingContentDoesNotLeak(t *testing.T) {
	const S, M, D = 4, 2, 3
	q, enc := randomInputs(4, S, M, D)
	lens := []int{2, 4}
	a := NewCosine()
	base := a.Context(q, enc, lens)

	poisoned := enc.Clone()
	for s := 2; s < S; s++ {
		for d := 0; d < D; d++ {
			poisoned.Set(1e6, s, 0, d)
		}
	}
	got := a.Context(q, poisoned, lens)
	assert.Equal(t, base.Row(0), got.Row(0))
}

func TestCosine_ContextIsWeightedSum(t *testing.T) {
	const S, M, D = 3, 2, 4
	q, enc := randomInputs(5, S, M, D)
	lens := []int{3, 2}
	a := NewCosine()
	w := a.Weights(q, enc, lens)
	c := a.Context(q, enc, lens)

	for m := 0; m < M; m++ {
		for d := 0; d < D; d++ {
			want := 0.0
			for s := 0; s < S; s++ {
				want += float64(w.At(s, m)) * float64(enc.At(s, m, d))
			}
			assert.InDelta(t, want, c.At(m, d), 1e-5)
		}
	}
}

func TestCosine_InvalidLengthsPanic(t *testing.T) {
	q, enc := randomInputs(6, 3, 2, 2)
	a := NewCosine()
	assert.Panics(t, func() { a.Context(q, enc, []int{0, 1}) })
	assert.Panics(t, func() { a.Context(q, enc, []int{4, 1}) })
	assert.Panics(t, func() { a.Context(q, enc, []int{1}) })
}

func TestMultiHead_OneHeadIdentityMatchesCosine(t *testing.T) {
	q, enc := randomInputs(7, 5, 3, 6)
	lens := []int{5, 2, 4}

	want := NewCosine().Context(q, enc, lens)
	got := NewIdentityMultiHead(6, 1).Context(q, enc, lens)
	require.Equal(t, want.Shape(), got.Shape())
	for i := range want.Data() {
		assert.InDelta(t, want.Data()[i], got.Data()[i], 1e-5)
	}
}

func TestMultiHead_HeadsAreIndependentSlices(t *testing.T) {
	const S, M, D, H = 4, 2, 6, 3
	q, enc := randomInputs(8, S, M, D)
	lens := []int{4, 3}
	got := NewIdentityMultiHead(D, H).Context(q, enc, lens)

	hd := D / H
	for h := 0; h < H; h++ {
		qh := tensor.Zeros(tensor.Shape{M, hd})
		eh := tensor.Zeros(tensor.Shape{S, M, hd})
		for m := 0; m < M; m++ {
			for k := 0; k < hd; k++ {
				qh.Set(q.At(m, h*hd+k), m, k)
				for s := 0; s < S; s++ {
					eh.Set(enc.At(s, m, h*hd+k), s, m, k)
				}
			}
		}
		want := NewCosine().Context(qh, eh, lens)
		for m := 0; m < M; m++ {
			for k := 0; k < hd; k++ {
				assert.InDelta(t, want.At(m, k), got.At(m, h*hd+k), 1e-5, "head %d row %d", h, m)
			}
		}
	}
}

func TestMultiHead_ProjectionShapes(t *testing.T) {
	q, enc := randomInputs(9, 3, 2, 8)
	mh := NewMultiHead(8, 4, rand.New(rand.NewSource(1)))
	c := mh.Context(q, enc, []int{3, 1})
	assert.Equal(t, tensor.Shape{2, 8}, c.Shape())
	for _, v := range c.Data() {
		assert.False(t, math.IsNaN(float64(v)))
	}
}

func TestMultiHead_PaddingDoesNotLeak(t *testing.T) {
	const S, M, D = 5, 2, 4
	q, enc := randomInputs(10, S, M, D)
	lens := []int{2, 5}
	mh := NewMultiHead(D, 2, rand.New(rand.NewSource(2)))
	base := mh.Context(q, enc, lens)

	poisoned := enc.Clone()
	for s := 2; s < S; s++ {
		for d := 0; d < D; d++ {
			poisoned.Set(-7e5, s, 0, d)
		}
	}
	got := mh.Context(q, poisoned, lens)
	assert.Equal(t, base.Row(0), got.Row(0))
}

func TestNewMultiHead_IndivisiblePanics(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	assert.Panics(t, func() { NewMultiHead(10, 3, rng) })
	assert.Panics(t, func() { NewMultiHead(10, 0, rng) })
	assert.NotPanics(t, func() { NewMultiHead(10, 5, rng) })
}

func TestMultiHead_StateDictRoundTrip(t *testing.T) {
	src := NewMultiHead(4, 2, rand.New(rand.NewSource(1)))
	dst := NewMultiHead(4, 2, rand.New(rand.NewSource(2)))
	sd := nn.StateDict{}
	src.StateDict("attn", sd)
	assert.Len(t, sd, 3)
	require.NoError(t, dst.LoadStateDict("attn", sd))
	assert.Equal(t, src.Q.Weight().Data(), dst.Q.Weight().Data())
}

func TestRepeatInterleave(t *testing.T) {
	assert.Equal(t, []int{1, 1, 2, 2, 3, 3}, RepeatInterleave([]int{1, 2, 3}, 2))
	assert.Equal(t, []int{4}, RepeatInterleave([]int{4}, 1))
}
