package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/seq2seq"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

// File is a decoded checkpoint.
type File struct {
	Header  Header
	Tensors nn.StateDict
}

// Load reads and verifies a checkpoint.
func Load(path string) (*File, error) {
	//nolint:gosec // G304: checkpoint path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode parses a checkpoint held in memory. The checksum is verified
// before anything else is interpreted.
func Decode(data []byte) (*File, error) {
	if len(data) < prefixSize+ChecksumSize {
		return nil, ErrTruncated
	}
	if string(data[:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}

	body, stored := data[:len(data)-ChecksumSize], data[len(data)-ChecksumSize:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], stored) {
		return nil, ErrChecksumMismatch
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	headerSize := binary.LittleEndian.Uint64(data[8:16])
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	if uint64(len(body)-prefixSize) < headerSize {
		return nil, ErrTruncated
	}
	end := prefixSize + int(headerSize)

	var header Header
	if err := json.Unmarshal(body[prefixSize:end], &header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	section := body[end:]
	if err := validateHeader(&header, int64(len(section))); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	sd := make(nn.StateDict, len(header.Tensors))
	for _, meta := range header.Tensors {
		raw := section[meta.Offset : meta.Offset+meta.Size]
		values := make([]float32, len(raw)/4)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		sd[meta.Name] = tensor.New(values, tensor.Shape(meta.Shape))
	}
	return &File{Header: header, Tensors: sd}, nil
}

// Model rebuilds the stored model.
func (f *File) Model() (*seq2seq.Model, error) {
	mdl, err := seq2seq.New(f.Header.Config, nil)
	if err != nil {
		return nil, err
	}
	if err := mdl.LoadStateDict(f.Tensors); err != nil {
		return nil, err
	}
	return mdl, nil
}

// SaveModel writes mdl to path.
func SaveModel(path string, mdl *seq2seq.Model) (Header, error) {
	return Save(path, mdl.Config, mdl.StateDict())
}
