// Package ngram extracts contiguous n-grams from token sequences.
package ngram

import (
	"fmt"
	"slices"
)

// Extract returns every contiguous window of length n in seq, in order.
//
// It returns an empty result when len(seq) < n. For n == 0 the result holds
// len(seq)+1 empty windows, one per gap between tokens, so that a 0-gram
// always matches.
//
// Windows share memory with seq.
func Extract[T comparable](seq []T, n int) [][]T {
	if n < 0 {
		panic(fmt.Sprintf("ngram.Extract: negative order %d", n))
	}
	if len(seq) < n {
		return [][]T{}
	}
	grams := make([][]T, 0, len(seq)-n+1)
	for i := 0; i+n <= len(seq); i++ {
		grams = append(grams, seq[i:i+n:i+n])
	}
	return grams
}

// Contains reports whether g equals any of grams.
func Contains[T comparable](grams [][]T, g []T) bool {
	return slices.ContainsFunc(grams, func(x []T) bool {
		return slices.Equal(x, g)
	})
}
