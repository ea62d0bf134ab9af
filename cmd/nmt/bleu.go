package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/bleu"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tokenizer"
)

func runBLEU(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("bleu", flag.ContinueOnError)
	refPath := fs.String("ref", "", "File with one reference sentence per line")
	candPath := fs.String("cand", "-", "File with one candidate sentence per line (- for stdin)")
	maxN := fs.Int("n", 4, "Maximum n-gram order")
	tokSpec := fs.String("tokenizer", "word", "word, a vocab.json/tokenizer.json path, or a tiktoken encoding")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *refPath == "" {
		return errors.New("-ref is required")
	}

	refs, err := readLines(*refPath)
	if err != nil {
		return err
	}
	cands, err := readLines(*candPath)
	if err != nil {
		return err
	}
	if len(refs) != len(cands) {
		return fmt.Errorf("%d references but %d candidates", len(refs), len(cands))
	}

	tok, err := tokenizer.Load(*tokSpec, append(append([]string{}, refs...), cands...))
	if err != nil {
		return err
	}

	total := 0.0
	for i := range refs {
		ref, err := tok.Encode(refs[i])
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		cand, err := tok.Encode(cands[i])
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		score, err := bleu.Score(ref, cand, *maxN)
		if err != nil {
			return err
		}
		total += score
		fmt.Fprintf(stdout, "%d\t%.4f\n", i+1, score)
	}
	if len(refs) > 0 {
		fmt.Fprintf(stdout, "mean\t%.4f\n", total/float64(len(refs)))
	}
	return nil
}
