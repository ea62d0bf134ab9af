package tokenizer

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int, error)

	// Decode converts token IDs back to text.
	Decode(ids []int) (string, error)

	// VocabSize returns the total vocabulary size.
	VocabSize() int

	// Name identifies the tokenizer in logs and checkpoints.
	Name() string
}
