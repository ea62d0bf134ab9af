// Package bleu scores a candidate translation against a single reference.
//
// Precision here is unclipped: a candidate n-gram counts as matched when it
// appears anywhere in the reference, no matter how often the candidate
// repeats it. Standard BLEU clips candidate counts by reference counts, so
// scores from this package are higher for repetitive candidates.
package bleu

import (
	"errors"
	"fmt"
	"math"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/ngram"
)

// ErrInvalidOrder is returned when the maximum n-gram order is below 1.
var ErrInvalidOrder = errors.New("bleu: maximum n-gram order must be >= 1")

// Precision returns the fraction of candidate n-grams that occur in the
// reference. It is 0 when the candidate yields no n-grams.
func Precision[T comparable](reference, candidate []T, n int) float64 {
	refGrams := ngram.Extract(reference, n)
	candGrams := ngram.Extract(candidate, n)
	if len(candGrams) == 0 {
		return 0
	}
	matched := 0
	for _, g := range candGrams {
		if ngram.Contains(refGrams, g) {
			matched++
		}
	}
	return float64(matched) / float64(len(candGrams))
}

// BrevityPenalty discounts candidates shorter than the reference.
//
// It is 0 for an empty candidate, 1 when the candidate is longer than the
// reference and exp(1 - r/c) otherwise.
func BrevityPenalty[T comparable](reference, candidate []T) float64 {
	c := len(candidate)
	if c == 0 {
		return 0
	}
	brevity := float64(len(reference)) / float64(c)
	if brevity < 1 {
		return 1
	}
	return math.Exp(1 - brevity)
}

// Score computes BP * (p_0 * p_1 * ... * p_maxN)^(1/maxN).
//
// The product starts at the 0-gram precision, which is 1 for any input.
func Score[T comparable](reference, candidate []T, maxN int) (float64, error) {
	if maxN < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidOrder, maxN)
	}
	bp := BrevityPenalty(reference, candidate)
	product := 1.0
	for i := 0; i <= maxN; i++ {
		product *= Precision(reference, candidate, i)
	}
	return bp * math.Pow(product, 1/float64(maxN)), nil
}

// MustScore is like Score but panics on an invalid order.
func MustScore[T comparable](reference, candidate []T, maxN int) float64 {
	s, err := Score(reference, candidate, maxN)
	if err != nil {
		panic(err)
	}
	return s
}
