package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

func TestLinear_Forward(t *testing.T) {
	w := tensor.New([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := tensor.New([]float32{10, 20}, tensor.Shape{2})
	l := NewLinearFromWeights(w, b)

	x := tensor.New([]float32{1, 0, 1, 0, 1, 0}, tensor.Shape{2, 3})
	y := l.Forward(x)
	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.Equal(t, []float32{14, 30, 12, 25}, y.Data())
}

func TestLinear_ForwardShapeMismatchPanics(t *testing.T) {
	l := NewLinear(3, 2, true, rand.New(rand.NewSource(0)))
	assert.Panics(t, func() { l.Forward(tensor.Zeros(tensor.Shape{1, 4})) })
	assert.Panics(t, func() { l.Forward(tensor.Zeros(tensor.Shape{4})) })
}

func TestIdentity(t *testing.T) {
	x := tensor.New([]float32{1, -2, 3, 0.5}, tensor.Shape{2, 2})
	assert.Equal(t, x.Data(), Identity(2).Forward(x).Data())
}

func TestLinear_StateDictRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	src := NewLinear(4, 3, true, rng)
	dst := NewLinear(4, 3, true, rng)

	sd := StateDict{}
	src.StateDict("proj", sd)
	require.Contains(t, sd, "proj.weight")
	require.Contains(t, sd, "proj.bias")
	require.NoError(t, dst.LoadStateDict("proj", sd))
	assert.Equal(t, src.Weight().Data(), dst.Weight().Data())

	wrong := NewLinear(5, 3, true, rng)
	assert.Error(t, wrong.LoadStateDict("proj", sd))
	assert.Error(t, dst.LoadStateDict("other", sd))
}

func TestEmbedding_PadRowIsZero(t *testing.T) {
	e := NewEmbedding(10, 4, 2, rand.New(rand.NewSource(1)))
	out := e.Forward([]int{2, 5, 2})
	assert.Equal(t, tensor.Shape{3, 4}, out.Shape())
	assert.Equal(t, []float32{0, 0, 0, 0}, out.Row(0))
	assert.Equal(t, e.Weight.Row(5), out.Row(1))
	assert.Panics(t, func() { e.Forward([]int{10}) })
}

func TestParseCellKind(t *testing.T) {
	for _, k := range []CellKind{RNN, GRU, LSTM} {
		got, err := ParseCellKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseCellKind("transformer")
	assert.Error(t, err)
}

func TestRecurrent_StateLayout(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := Normal(tensor.Shape{3, 5}, rng)
	for _, kind := range []CellKind{RNN, GRU, LSTM} {
		t.Run(kind.String(), func(t *testing.T) {
			c := NewCell(kind, 5, 4, rng)
			s0 := c.InitialState(3)
			assert.Equal(t, kind == LSTM, s0.IsComposite())

			s1 := c.Step(x, s0)
			assert.Equal(t, tensor.Shape{3, 4}, s1.Output().Shape())
			assert.Equal(t, kind == LSTM, s1.IsComposite())
			for _, v := range s1.Output().Data() {
				assert.LessOrEqual(t, math.Abs(float64(v)), 1.0)
			}
		})
	}
}

func TestRecurrent_RNNMatchesFormula(t *testing.T) {
	c := NewCell(RNN, 1, 1, rand.New(rand.NewSource(0)))
	sd := StateDict{
		"weight_ih": tensor.New([]float32{0.5}, tensor.Shape{1, 1}),
		"bias_ih":   tensor.New([]float32{0.1}, tensor.Shape{1}),
		"weight_hh": tensor.New([]float32{-1}, tensor.Shape{1, 1}),
		"bias_hh":   tensor.New([]float32{0.2}, tensor.Shape{1}),
	}
	require.NoError(t, c.LoadStateDict("", sd))

	prev := HiddenState{H: tensor.New([]float32{0.3}, tensor.Shape{1, 1})}
	next := c.Step(tensor.New([]float32{2}, tensor.Shape{1, 1}), prev)
	assert.InDelta(t, math.Tanh(0.5*2+0.1-0.3+0.2), next.H.At(0, 0), 1e-6)
}

func TestRecurrent_LSTMMatchesFormula(t *testing.T) {
	c := NewCell(LSTM, 1, 1, rand.New(rand.NewSource(0)))
	// Gates (i, f, g, o) see input weights 1, 2, 3, 4 and nothing else.
	sd := StateDict{
		"weight_ih": tensor.New([]float32{1, 2, 3, 4}, tensor.Shape{4, 1}),
		"bias_ih":   tensor.Zeros(tensor.Shape{4}),
		"weight_hh": tensor.Zeros(tensor.Shape{4, 1}),
		"bias_hh":   tensor.Zeros(tensor.Shape{4}),
	}
	require.NoError(t, c.LoadStateDict("", sd))

	prev := HiddenState{
		H: tensor.New([]float32{0}, tensor.Shape{1, 1}),
		C: tensor.New([]float32{0.5}, tensor.Shape{1, 1}),
	}
	x := 0.25
	next := c.Step(tensor.New([]float32{float32(x)}, tensor.Shape{1, 1}), prev)

	sig := func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }
	cWant := sig(2*x)*0.5 + sig(x)*math.Tanh(3*x)
	hWant := sig(4*x) * math.Tanh(cWant)
	assert.InDelta(t, cWant, next.C.At(0, 0), 1e-6)
	assert.InDelta(t, hWant, next.H.At(0, 0), 1e-6)
}

func TestRecurrent_StateMismatchPanics(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	lstm := NewCell(LSTM, 2, 2, rng)
	gru := NewCell(GRU, 2, 2, rng)
	x := tensor.Zeros(tensor.Shape{1, 2})
	assert.Panics(t, func() { lstm.Step(x, gru.InitialState(1)) })
	assert.Panics(t, func() { gru.Step(x, lstm.InitialState(1)) })
}

func TestHiddenState_GatherRowsMovesBothParts(t *testing.T) {
	s := HiddenState{
		H: tensor.New([]float32{1, 2, 3}, tensor.Shape{3, 1}),
		C: tensor.New([]float32{10, 20, 30}, tensor.Shape{3, 1}),
	}
	g := s.GatherRows([]int{2, 2, 0})
	assert.Equal(t, []float32{3, 3, 1}, g.H.Data())
	assert.Equal(t, []float32{30, 30, 10}, g.C.Data())
	assert.Equal(t, []float32{1, 2, 3}, s.H.Data(), "source must be untouched")
}

func TestHiddenState_Where(t *testing.T) {
	a := HiddenState{H: tensor.New([]float32{1, 2}, tensor.Shape{2, 1})}
	b := HiddenState{H: tensor.New([]float32{8, 9}, tensor.Shape{2, 1})}
	w := a.Where([]bool{true, false}, b)
	assert.Equal(t, []float32{1, 9}, w.H.Data())

	composite := HiddenState{H: a.H, C: a.H}
	assert.Panics(t, func() { a.Where([]bool{true, true}, composite) })
}

func TestCrossEntropy_IgnoresPadding(t *testing.T) {
	logits := tensor.New([]float32{
		0, 0,
		10, -10,
		1, 1,
	}, tensor.Shape{3, 2})
	total, count := CrossEntropy(logits, []int{0, 0, -1}, -1)
	assert.Equal(t, 2, count)
	assert.InDelta(t, math.Log(2)+math.Log1p(math.Exp(-20)), total, 1e-5)
}
