package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/checkpoint"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/config"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/eval"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/seq2seq"
)

func runInit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML model configuration (defaults when empty)")
	out := fs.String("out", "model.nmtc", "Checkpoint to write")
	seed := fs.Int64("seed", 0, "Override the configured random seed (0 keeps it)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	mdl, err := seq2seq.New(cfg, nil)
	if err != nil {
		return err
	}
	header, err := checkpoint.SaveModel(*out, mdl)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (run %s, %d tensors)\n", *out, header.RunID, len(header.Tensors))
	return nil
}

func loadModel(path string) (*seq2seq.Model, error) {
	f, err := checkpoint.Load(path)
	if err != nil {
		return nil, err
	}
	return f.Model()
}

func checkIDs(ids []int, vocab int) error {
	for _, id := range ids {
		if id < 0 || id >= vocab {
			return fmt.Errorf("token id %d outside vocabulary of %d", id, vocab)
		}
	}
	return nil
}

func runTranslate(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	ckpt := fs.String("checkpoint", "", "Checkpoint to load")
	width := fs.Int("beam", 0, "Beam width (0 uses the checkpoint setting)")
	maxSteps := fs.Int("max", 0, "Maximum decoding steps (0 uses the checkpoint setting)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ckpt == "" {
		return errors.New("-checkpoint is required")
	}

	mdl, err := loadModel(*ckpt)
	if err != nil {
		return err
	}
	if *width <= 0 {
		*width = mdl.Config.Decode.BeamWidth
	}
	if *maxSteps <= 0 {
		*maxSteps = mdl.Config.Decode.MaxSteps
	}

	lines, err := scanLines(stdin)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(stdout)
	defer w.Flush()

	sos, eos := mdl.Config.Tokens.TargetSOS, mdl.Config.Tokens.TargetEOS
	for n, line := range lines {
		ids, err := parseIDs(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", n+1, err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(w)
			continue
		}
		if err := checkIDs(ids, mdl.Config.Model.SourceVocabSize); err != nil {
			return fmt.Errorf("line %d: %w", n+1, err)
		}
		F, lens := eval.Pad([][]int{ids}, mdl.Config.Tokens.SourcePad)
		res := mdl.BeamSearchWidth(F, lens, *width, *maxSteps)
		fmt.Fprintf(w, "%s\t%.4f\n", formatIDs(eval.StripSpecial(res.Top(0), sos, eos)), res.LogProb(0, 0))
	}
	return nil
}

func runEval(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	ckpt := fs.String("checkpoint", "", "Checkpoint to load")
	srcPath := fs.String("src", "", "Source token ids, one sentence per line")
	refPath := fs.String("ref", "", "Reference token ids, one sentence per line, without start/end tokens")
	batchSize := fs.Int("batch", 32, "Sentences per batch")
	verbose := fs.Bool("v", false, "Log per-batch progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ckpt == "" || *srcPath == "" || *refPath == "" {
		return errors.New("-checkpoint, -src and -ref are required")
	}
	if *batchSize < 1 {
		return fmt.Errorf("-batch must be >= 1, got %d", *batchSize)
	}

	mdl, err := loadModel(*ckpt)
	if err != nil {
		return err
	}
	srcs, err := readIDLines(*srcPath)
	if err != nil {
		return err
	}
	refs, err := readIDLines(*refPath)
	if err != nil {
		return err
	}
	if len(srcs) != len(refs) {
		return fmt.Errorf("%d source sentences but %d references", len(srcs), len(refs))
	}

	for i := range srcs {
		if len(srcs[i]) == 0 {
			return fmt.Errorf("%s:%d: empty sentence", *srcPath, i+1)
		}
		if err := checkIDs(srcs[i], mdl.Config.Model.SourceVocabSize); err != nil {
			return fmt.Errorf("%s:%d: %w", *srcPath, i+1, err)
		}
		if err := checkIDs(refs[i], mdl.Config.Model.TargetVocabSize); err != nil {
			return fmt.Errorf("%s:%d: %w", *refPath, i+1, err)
		}
	}

	tokens := mdl.Config.Tokens
	var batches []eval.Batch
	for i := 0; i < len(srcs); i += *batchSize {
		j := min(i+*batchSize, len(srcs))
		batches = append(batches, eval.NewBatch(srcs[i:j], refs[i:j], tokens.SourcePad, tokens.TargetSOS, tokens.TargetEOS))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "eval: ", log.LstdFlags)
	}

	src := eval.NewSliceSource(batches...)
	score, err := eval.AverageBLEU(ctx, mdl, src, tokens.TargetSOS, tokens.TargetEOS, logger)
	if err != nil {
		return err
	}
	src.Reset()
	loss, err := eval.AverageLoss(ctx, mdl, src, tokens.TargetEOS, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "sentences\t%d\nbleu\t%.4f\nloss\t%.4f\n", len(srcs), score, loss)
	return nil
}
