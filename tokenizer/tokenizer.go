// Copyright 2025 The Neural-Machine-Translation Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer turns sentences into token ids for translation and
// BLEU scoring.
//
// This package wraps the internal tokenizer implementations and provides
// a clean public API.
//
// Supported tokenizers:
//   - Word: whole words and punctuation over a closed vocabulary
//   - BPE: Byte-Pair Encoding from HuggingFace tokenizer.json
//   - TikToken: OpenAI BPE encodings
//
// Example usage:
//
//	import "github.com/Xinyu-Kang/Neural-Machine-Translation/tokenizer"
//
//	tok, err := tokenizer.BuildWord(corpus, 1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := tok.Encode("Hello, world!")
//	if err != nil {
//	    log.Fatal(err)
//	}
package tokenizer

import (
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tokenizer"
)

// Tokenizer converts between text and token ids.
type Tokenizer = tokenizer.Tokenizer

// Word is a word-level tokenizer with a closed vocabulary.
type Word = tokenizer.Word

// Special token ids of a Word vocabulary.
const (
	PadID = tokenizer.PadID
	SOSID = tokenizer.SOSID
	EOSID = tokenizer.EOSID
	UnkID = tokenizer.UnkID
)

// Split breaks text into words and punctuation marks.
func Split(text string) ([]string, error) {
	return tokenizer.Split(text)
}

// BuildWord creates a Word vocabulary from a corpus, keeping words seen at
// least minCount times.
func BuildWord(corpus []string, minCount int) (*Word, error) {
	return tokenizer.BuildWord(corpus, minCount)
}

// LoadWordVocab reads a Word vocabulary from vocab.json.
func LoadWordVocab(path string) (*Word, error) {
	return tokenizer.LoadWordVocab(path)
}

// NewTikToken creates a new TikToken tokenizer with the specified encoding.
//
// Supported encodings: "cl100k_base" (GPT-4), "p50k_base" (GPT-3).
func NewTikToken(encodingName string) (Tokenizer, error) {
	tok, err := tokenizer.NewTikToken(encodingName)
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// LoadBPE loads a BPE tokenizer from a HuggingFace tokenizer.json.
func LoadBPE(path string) (Tokenizer, error) {
	tok, err := tokenizer.LoadBPEFromHuggingFace(path)
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// Load returns the tokenizer named by spec: "word" (built from corpus), a
// vocab.json or tokenizer.json path, or a tiktoken encoding or model name.
func Load(spec string, corpus []string) (Tokenizer, error) {
	return tokenizer.Load(spec, corpus)
}
