package tokenizer

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Special token ids of a Word vocabulary.
const (
	PadID = 0
	SOSID = 1
	EOSID = 2
	UnkID = 3
)

// Special tokens, in id order.
var specials = []string{"<pad>", "<s>", "</s>", "<unk>"}

// wordPattern matches a word, optionally with one apostrophe suffix
// ("don't", "l'homme"), or a single punctuation mark.
var wordPattern = regexp2.MustCompile(`\w+(?:'\w+)?|[^\w\s]`, regexp2.None)

func init() {
	wordPattern.MatchTimeout = time.Second
}

// Split breaks text into words and punctuation marks.
func Split(text string) ([]string, error) {
	var out []string
	m, err := wordPattern.FindStringMatch(text)
	for m != nil && err == nil {
		out = append(out, m.String())
		m, err = wordPattern.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	return out, nil
}

// Word is a word-level tokenizer with a closed vocabulary. Words outside
// the vocabulary encode to UnkID.
type Word struct {
	vocab  map[string]int
	tokens []string
}

// NewWord creates a Word tokenizer over tokens. The special tokens are
// placed first; duplicates and specials inside tokens are ignored.
func NewWord(tokens []string) *Word {
	w := &Word{vocab: make(map[string]int, len(tokens)+len(specials))}
	for _, t := range specials {
		w.add(t)
	}
	for _, t := range tokens {
		w.add(t)
	}
	return w
}

func (w *Word) add(token string) {
	if _, ok := w.vocab[token]; ok {
		return
	}
	w.vocab[token] = len(w.tokens)
	w.tokens = append(w.tokens, token)
}

// BuildWord creates a vocabulary from a corpus. Words seen fewer than
// minCount times are left out. Ids are assigned by descending frequency,
// then alphabetically.
func BuildWord(corpus []string, minCount int) (*Word, error) {
	counts := map[string]int{}
	for _, line := range corpus {
		words, err := Split(line)
		if err != nil {
			return nil, err
		}
		for _, word := range words {
			counts[word]++
		}
	}

	words := make([]string, 0, len(counts))
	for word, n := range counts {
		if n >= minCount {
			words = append(words, word)
		}
	}
	slices.SortFunc(words, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return NewWord(words), nil
}

// LoadWordVocab reads a vocab.json mapping tokens to ids. The special
// tokens must appear at their fixed ids and ids must be contiguous.
func LoadWordVocab(path string) (*Word, error) {
	//nolint:gosec // G304: vocabulary path comes from the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	raw := map[string]int{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}

	tokens := make([]string, len(raw))
	for token, id := range raw {
		if id < 0 || id >= len(raw) || tokens[id] != "" {
			return nil, fmt.Errorf("vocabulary id %d of %q is not contiguous", id, token)
		}
		tokens[id] = token
	}
	for id, s := range specials {
		if tokens[id] != s {
			return nil, fmt.Errorf("vocabulary id %d is %q, expected %q", id, tokens[id], s)
		}
	}
	return &Word{vocab: raw, tokens: tokens}, nil
}

// SaveVocab writes the vocabulary as vocab.json.
func (w *Word) SaveVocab(path string) error {
	data, err := json.MarshalIndent(w.vocab, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal vocabulary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write vocabulary: %w", err)
	}
	return nil
}

// Encode implements Tokenizer.
func (w *Word) Encode(text string) ([]int, error) {
	words, err := Split(text)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(words))
	for i, word := range words {
		id, ok := w.vocab[word]
		if !ok {
			id = UnkID
		}
		ids[i] = id
	}
	return ids, nil
}

// Decode implements Tokenizer. Padding and sentence markers are dropped;
// tokens are joined with single spaces.
func (w *Word) Decode(ids []int) (string, error) {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(w.tokens) {
			return "", fmt.Errorf("token id %d outside vocabulary of %d", id, len(w.tokens))
		}
		if id == PadID || id == SOSID || id == EOSID {
			continue
		}
		parts = append(parts, w.tokens[id])
	}
	return strings.Join(parts, " "), nil
}

// VocabSize implements Tokenizer.
func (w *Word) VocabSize() int {
	return len(w.tokens)
}

// Name implements Tokenizer.
func (w *Word) Name() string {
	return "word"
}

// Token returns the string for id, or "" when it is out of range.
func (w *Word) Token(id int) string {
	if id < 0 || id >= len(w.tokens) {
		return ""
	}
	return w.tokens[id]
}
