package nn

import (
	"math"
	"math/rand"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Values are drawn from U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))).
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return tensor.Uniform(shape, bound, rng)
}

// RecurrentUniform draws from U(-1/sqrt(hidden), 1/sqrt(hidden)), the usual
// initialization for recurrent cell weights and biases.
func RecurrentUniform(hidden int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	return tensor.Uniform(shape, 1/math.Sqrt(float64(hidden)), rng)
}

// Normal draws every element from N(0, 1).
func Normal(shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	t := tensor.Zeros(shape)
	data := t.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return t
}

// Sigmoid is the logistic function.
func Sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// Tanh is the hyperbolic tangent.
func Tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}
