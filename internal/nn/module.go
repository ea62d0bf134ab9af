// Package nn implements the neural network building blocks of the
// translation model: dense layers, embeddings, recurrent cells and the
// hidden state they carry between time steps.
//
// All modules are inference-time: parameters are plain tensors that can be
// exported to and restored from a state dictionary.
package nn

import (
	"fmt"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// StateDict maps fully qualified parameter names to tensors.
type StateDict map[string]*tensor.Tensor

// Module is implemented by every component that owns parameters.
type Module interface {
	// StateDict writes the module's parameters into dst under prefix.
	StateDict(prefix string, dst StateDict)

	// LoadStateDict copies parameters from src, validating shapes.
	LoadStateDict(prefix string, src StateDict) error
}

// Key joins a module prefix and a parameter name with a dot.
func Key(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// loadInto copies src[key] into dst after checking that the shapes agree.
func loadInto(dst *tensor.Tensor, src StateDict, key string) error {
	t, ok := src[key]
	if !ok {
		return fmt.Errorf("missing %s in state dict", key)
	}
	if !t.Shape().Equal(dst.Shape()) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", key, dst.Shape(), t.Shape())
	}
	copy(dst.Data(), t.Data())
	return nil
}
