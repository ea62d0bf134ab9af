package nn

import (
	"fmt"
	"math/rand"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the optional bias vector with shape [out_features]
//
// Example:
//
//	rng := rand.New(rand.NewSource(0))
//	layer := nn.NewLinear(512, 1000, true, rng)
//	logits := layer.Forward(hidden) // [batch, 1000]
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *tensor.Tensor // [out_features, in_features]
	bias        *tensor.Tensor // [out_features], nil when disabled
}

// NewLinear creates a Linear layer with Xavier-initialized weights and a
// zero bias when withBias is set.
func NewLinear(inFeatures, outFeatures int, withBias bool, rng *rand.Rand) *Linear {
	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, rng),
	}
	if withBias {
		l.bias = tensor.Zeros(tensor.Shape{outFeatures})
	}
	return l
}

// NewLinearFromWeights wraps existing parameters. bias may be nil.
func NewLinearFromWeights(weight, bias *tensor.Tensor) *Linear {
	shape := weight.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("NewLinearFromWeights: weight must be 2-D, got %v", shape))
	}
	if bias != nil && bias.NumElements() != shape[0] {
		panic(fmt.Sprintf("NewLinearFromWeights: bias has %d elements for %d outputs", bias.NumElements(), shape[0]))
	}
	return &Linear{inFeatures: shape[1], outFeatures: shape[0], weight: weight, bias: bias}
}

// Identity returns a square bias-free Linear layer that returns its input.
func Identity(features int) *Linear {
	w := tensor.Zeros(tensor.Shape{features, features})
	for i := 0; i < features; i++ {
		w.Set(1, i, i)
	}
	return NewLinearFromWeights(w, nil)
}

// Forward computes the output of the linear layer.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear) Forward(input *tensor.Tensor) *tensor.Tensor {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	output := tensor.MatMulTransB(input, l.weight)
	if l.bias != nil {
		output.AddRowVector(l.bias)
	}
	return output
}

// Weight returns the weight tensor.
func (l *Linear) Weight() *tensor.Tensor {
	return l.weight
}

// Bias returns the bias tensor, or nil.
func (l *Linear) Bias() *tensor.Tensor {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}

// StateDict implements Module.
func (l *Linear) StateDict(prefix string, dst StateDict) {
	dst[Key(prefix, "weight")] = l.weight
	if l.bias != nil {
		dst[Key(prefix, "bias")] = l.bias
	}
}

// LoadStateDict implements Module.
func (l *Linear) LoadStateDict(prefix string, src StateDict) error {
	if err := loadInto(l.weight, src, Key(prefix, "weight")); err != nil {
		return err
	}
	if l.bias != nil {
		return loadInto(l.bias, src, Key(prefix, "bias"))
	}
	return nil
}
