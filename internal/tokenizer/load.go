package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"
)

// Load returns the tokenizer named by spec:
//   - "word" builds a Word vocabulary from corpus
//   - a vocab.json file loads a Word vocabulary
//   - a tokenizer.json file, or a directory holding one, loads BPE
//   - anything else is tried as a tiktoken encoding, then as a model name
func Load(spec string, corpus []string) (Tokenizer, error) {
	var (
		tok Tokenizer
		err error
	)
	switch info, statErr := os.Stat(spec); {
	case spec == "word":
		tok, err = BuildWord(corpus, 1)
	case statErr == nil && !info.IsDir() && filepath.Base(spec) == "vocab.json":
		tok, err = LoadWordVocab(spec)
	case statErr == nil && info.IsDir():
		tok, err = LoadBPEFromHuggingFace(filepath.Join(spec, "tokenizer.json"))
	case statErr == nil:
		tok, err = LoadBPEFromHuggingFace(spec)
	default:
		return loadTikToken(spec)
	}
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func loadTikToken(spec string) (Tokenizer, error) {
	if tok, err := NewTikToken(spec); err == nil {
		return tok, nil
	}
	if tok, err := NewTikTokenForModel(spec); err == nil {
		return tok, nil
	}
	return nil, fmt.Errorf("failed to load tokenizer %q", spec)
}
