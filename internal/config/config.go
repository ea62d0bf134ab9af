// Package config holds the model and decoding configuration and its YAML
// encoding.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/attention"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config describes an encoder-decoder model and how to decode with it.
type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Tokens TokenConfig  `yaml:"tokens"`
	Decode DecodeConfig `yaml:"decode"`
	Seed   int64        `yaml:"seed"`
}

// ModelConfig sizes the network.
type ModelConfig struct {
	SourceVocabSize   int    `yaml:"source_vocab_size"`
	TargetVocabSize   int    `yaml:"target_vocab_size"`
	WordEmbeddingSize int    `yaml:"word_embedding_size"`
	EncoderHiddenSize int    `yaml:"encoder_hidden_size"` // per direction; the decoder uses twice this
	EncoderLayers     int    `yaml:"encoder_layers"`
	Cell              string `yaml:"cell"`      // rnn, gru or lstm
	Attention         string `yaml:"attention"` // none, single or multihead
	Heads             int    `yaml:"heads"`
}

// TokenConfig names the special token ids.
type TokenConfig struct {
	SourcePad int `yaml:"source_pad"`
	TargetSOS int `yaml:"target_sos"`
	TargetEOS int `yaml:"target_eos"` // doubles as the decoder padding id
}

// DecodeConfig controls beam search.
type DecodeConfig struct {
	BeamWidth int `yaml:"beam_width"`
	MaxSteps  int `yaml:"max_steps"`
}

// Default returns a small working configuration.
func Default() Config {
	return Config{
		Model: ModelConfig{
			SourceVocabSize:   1000,
			TargetVocabSize:   1000,
			WordEmbeddingSize: 64,
			EncoderHiddenSize: 64,
			EncoderLayers:     1,
			Cell:              "lstm",
			Attention:         "single",
			Heads:             4,
		},
		Tokens: TokenConfig{
			SourcePad: 0,
			TargetSOS: 1,
			TargetEOS: 2,
		},
		Decode: DecodeConfig{
			BeamWidth: 4,
			MaxSteps:  100,
		},
		Seed: 1,
	}
}

// DecoderHiddenSize returns the width of the decoder state, which matches
// the concatenated bidirectional encoder output.
func (c Config) DecoderHiddenSize() int {
	return 2 * c.Model.EncoderHiddenSize
}

// CellKind parses Model.Cell.
func (c Config) CellKind() (nn.CellKind, error) {
	return nn.ParseCellKind(c.Model.Cell)
}

// AttentionKind parses Model.Attention.
func (c Config) AttentionKind() (attention.Kind, error) {
	return attention.ParseKind(c.Model.Attention)
}

// Validate reports the first problem with c, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	m := c.Model
	positive := []struct {
		name  string
		value int
	}{
		{"model.source_vocab_size", m.SourceVocabSize},
		{"model.target_vocab_size", m.TargetVocabSize},
		{"model.word_embedding_size", m.WordEmbeddingSize},
		{"model.encoder_hidden_size", m.EncoderHiddenSize},
		{"model.encoder_layers", m.EncoderLayers},
		{"decode.beam_width", c.Decode.BeamWidth},
		{"decode.max_steps", c.Decode.MaxSteps},
	}
	for _, p := range positive {
		if p.value < 1 {
			return fmt.Errorf("%w: %s must be >= 1, got %d", ErrInvalidConfig, p.name, p.value)
		}
	}

	if _, err := c.CellKind(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	kind, err := c.AttentionKind()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if kind == attention.KindMultiHead {
		if m.Heads < 1 {
			return fmt.Errorf("%w: model.heads must be >= 1, got %d", ErrInvalidConfig, m.Heads)
		}
		if c.DecoderHiddenSize()%m.Heads != 0 {
			return fmt.Errorf("%w: decoder hidden size %d is not divisible by %d heads",
				ErrInvalidConfig, c.DecoderHiddenSize(), m.Heads)
		}
	}

	t := c.Tokens
	if t.SourcePad < 0 || t.SourcePad >= m.SourceVocabSize {
		return fmt.Errorf("%w: tokens.source_pad %d outside source vocabulary", ErrInvalidConfig, t.SourcePad)
	}
	for name, id := range map[string]int{"tokens.target_sos": t.TargetSOS, "tokens.target_eos": t.TargetEOS} {
		if id < 0 || id >= m.TargetVocabSize {
			return fmt.Errorf("%w: %s %d outside target vocabulary", ErrInvalidConfig, name, id)
		}
	}
	if t.TargetSOS == t.TargetEOS {
		return fmt.Errorf("%w: start and end tokens must differ", ErrInvalidConfig)
	}
	return nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (Config, error) {
	//nolint:gosec // G304: configuration path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes c to path as YAML.
func (c Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
