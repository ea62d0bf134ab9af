// Copyright 2025 The Neural-Machine-Translation Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package seq2seq provides a recurrent encoder-decoder translation model
// with optional cosine or multi-head attention and beam search decoding.
//
// # Basic Usage
//
//	cfg, err := seq2seq.LoadConfig("model.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	model, err := seq2seq.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// F is time-major: F[t][m] is token t of sentence m.
//	result := model.BeamSearch(F, lens)
//	best := result.Top(0)
//
// # Checkpoints
//
//	if _, err := seq2seq.Save("model.nmtc", model); err != nil {
//	    log.Fatal(err)
//	}
//	model, err = seq2seq.Load("model.nmtc")
package seq2seq

import (
	"math/rand"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/checkpoint"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/config"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/seq2seq"
)

// Model is an encoder-decoder translation model.
type Model = seq2seq.Model

// Result holds the final hypotheses of a beam search.
type Result = seq2seq.Result

// Config describes a model and how to decode with it.
type Config = config.Config

// ErrInvalidConfig wraps configuration validation failures.
var ErrInvalidConfig = config.ErrInvalidConfig

// DefaultConfig returns a small working configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// New builds a randomly initialized model. A nil rng is seeded from
// cfg.Seed.
func New(cfg Config, rng *rand.Rand) (*Model, error) {
	return seq2seq.New(cfg, rng)
}

// Save writes a model checkpoint to path.
func Save(path string, model *Model) (checkpoint.Header, error) {
	return checkpoint.SaveModel(path, model)
}

// Load restores a model from a checkpoint written by Save.
func Load(path string) (*Model, error) {
	f, err := checkpoint.Load(path)
	if err != nil {
		return nil, err
	}
	return f.Model()
}
