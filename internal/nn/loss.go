package nn

import (
	"fmt"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// CrossEntropy returns the summed negative log-likelihood of targets under
// logits [N, V] and the number of rows that contributed. Rows whose target
// equals ignoreIndex are skipped.
//
// The log-sum-exp trick keeps large logits from overflowing.
func CrossEntropy(logits *tensor.Tensor, targets []int, ignoreIndex int) (float64, int) {
	shape := logits.Shape()
	if len(shape) != 2 || shape[0] != len(targets) {
		panic(fmt.Sprintf("CrossEntropy: logits %v do not match %d targets", shape, len(targets)))
	}
	logProbs := tensor.LogSoftmaxRows(logits)
	total := 0.0
	count := 0
	for i, target := range targets {
		if target == ignoreIndex {
			continue
		}
		if target < 0 || target >= shape[1] {
			panic(fmt.Sprintf("CrossEntropy: target %d outside %d classes", target, shape[1]))
		}
		total -= float64(logProbs.At(i, target))
		count++
	}
	return total, count
}
