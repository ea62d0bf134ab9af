// Package tokenizer turns sentences into the token ids the translation
// model and the BLEU scorer work with.
//
// Three tokenizers are provided:
//   - Word: whole words and punctuation marks over a corpus-built or
//     vocab.json vocabulary, with <pad>, <s>, </s> and <unk> at ids 0..3
//   - BPE: byte-pair encoding loaded from a HuggingFace tokenizer.json
//   - TikToken: OpenAI encodings (cl100k_base, p50k_base, r50k_base)
//
// Example usage:
//
//	tok, err := tokenizer.Load("word", corpus)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := tok.Encode("Hello, world!")
//	if err != nil {
//	    log.Fatal(err)
//	}
package tokenizer
