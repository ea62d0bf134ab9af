package tokenizer

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

// BPE implements byte-pair encoding over whitespace-separated words.
type BPE struct {
	vocab   map[string]int // token -> id
	reverse map[int]string // id -> token
	ranks   map[pair]int   // merge -> priority, lower first
	unk     int            // -1 drops unknown symbols
	special map[int]bool
}

type pair struct {
	first  string
	second string
}

// NewBPE creates a BPE tokenizer from a vocabulary and merge rules given in
// priority order.
func NewBPE(vocab map[string]int, merges []pair) *BPE {
	reverse := make(map[int]string, len(vocab))
	for token, id := range vocab {
		reverse[id] = token
	}
	ranks := make(map[pair]int, len(merges))
	for i, m := range merges {
		if _, ok := ranks[m]; !ok {
			ranks[m] = i
		}
	}
	return &BPE{
		vocab:   vocab,
		reverse: reverse,
		ranks:   ranks,
		unk:     -1,
		special: map[int]bool{},
	}
}

// Encode implements Tokenizer.
func (b *BPE) Encode(text string) ([]int, error) {
	ids := []int{}
	for _, word := range strings.Fields(text) {
		for _, symbol := range b.merge(word) {
			if id, ok := b.vocab[symbol]; ok {
				ids = append(ids, id)
			} else if b.unk >= 0 {
				ids = append(ids, b.unk)
			}
		}
	}
	return ids, nil
}

// merge splits word into characters and applies the highest priority merge
// until none applies.
func (b *BPE) merge(word string) []string {
	symbols := strings.Split(word, "")
	for len(symbols) > 1 {
		best, bestRank := -1, math.MaxInt
		for i := 0; i+1 < len(symbols); i++ {
			if r, ok := b.ranks[pair{symbols[i], symbols[i+1]}]; ok && r < bestRank {
				best, bestRank = i, r
			}
		}
		if best < 0 {
			break
		}
		merged := symbols[best] + symbols[best+1]
		symbols = append(symbols[:best+1], symbols[best+2:]...)
		symbols[best] = merged
	}
	return symbols
}

// Decode implements Tokenizer. Special tokens are skipped and unknown ids
// become U+FFFD.
func (b *BPE) Decode(ids []int) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		if b.special[id] {
			continue
		}
		if text, ok := b.reverse[id]; ok {
			sb.WriteString(text)
		} else {
			sb.WriteRune('�')
		}
	}
	return sb.String(), nil
}

// VocabSize implements Tokenizer.
func (b *BPE) VocabSize() int {
	return len(b.vocab)
}

// Name implements Tokenizer.
func (b *BPE) Name() string {
	return "bpe"
}

// hfTokenizerFile is the subset of tokenizer.json used here.
type hfTokenizerFile struct {
	Model struct {
		Type   string         `json:"type"`
		Vocab  map[string]int `json:"vocab"`
		Merges []string       `json:"merges"`
	} `json:"model"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

// LoadBPEFromHuggingFace loads a BPE model from a HuggingFace tokenizer.json.
func LoadBPEFromHuggingFace(path string) (*BPE, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path comes from trusted caller
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer.json: %w", err)
	}

	var file hfTokenizerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tokenizer.json: %w", err)
	}
	if file.Model.Type != "" && file.Model.Type != "BPE" {
		return nil, fmt.Errorf("unsupported tokenizer model %q in %s", file.Model.Type, path)
	}

	var merges []pair
	for _, m := range file.Model.Merges {
		parts := strings.Fields(m)
		if len(parts) == 2 {
			merges = append(merges, pair{parts[0], parts[1]})
		}
	}

	tok := NewBPE(file.Model.Vocab, merges)
	for _, added := range file.AddedTokens {
		if !added.Special {
			continue
		}
		tok.special[added.ID] = true
		if c := strings.ToLower(added.Content); c == "<unk>" || c == "[unk]" {
			tok.unk = added.ID
		}
	}
	return tok, nil
}
