// Copyright 2025 The Neural-Machine-Translation Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package bleu scores candidate translations against a reference with
// BLEU: the geometric mean of n-gram precisions scaled by a brevity
// penalty.
//
// Precision is unclipped, so a candidate that repeats a reference n-gram
// gets credit for every repetition.
//
// Example:
//
//	ref := strings.Fields("it is a guide to action that ensures that the military will always heed party commands")
//	cand := strings.Fields("it is a guide to action which ensures that the military always obeys the commands of the party")
//	score, err := bleu.Score(ref, cand, 2)
package bleu

import (
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/bleu"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/ngram"
)

// ErrInvalidOrder is returned when the maximum n-gram order is below 1.
var ErrInvalidOrder = bleu.ErrInvalidOrder

// Score returns the BLEU score of candidate against reference using
// n-grams up to maxN.
func Score[T comparable](reference, candidate []T, maxN int) (float64, error) {
	return bleu.Score(reference, candidate, maxN)
}

// Precision returns the fraction of candidate n-grams found in reference.
func Precision[T comparable](reference, candidate []T, n int) float64 {
	return bleu.Precision(reference, candidate, n)
}

// BrevityPenalty returns the penalty for candidates shorter than reference.
func BrevityPenalty[T comparable](reference, candidate []T) float64 {
	return bleu.BrevityPenalty(reference, candidate)
}

// NGrams returns every contiguous window of n tokens in seq.
func NGrams[T comparable](seq []T, n int) [][]T {
	return ngram.Extract(seq, n)
}
