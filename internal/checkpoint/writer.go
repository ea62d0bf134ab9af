package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/config"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
)

// Save writes cfg and the parameters in sd to path under a fresh run id.
func Save(path string, cfg config.Config, sd nn.StateDict) (Header, error) {
	header := Header{
		RunID:     uuid.New(),
		CreatedAt: time.Now().UTC(),
		Config:    cfg,
	}

	var buf bytes.Buffer
	header, err := Write(&buf, header, sd)
	if err != nil {
		return Header{}, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return Header{}, fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return header, nil
}

// Write encodes header and sd to w. Tensors are stored in name order; the
// returned header carries their metadata.
func Write(w io.Writer, header Header, sd nn.StateDict) (Header, error) {
	header.FormatVersion = FormatVersion
	header.Tensors = make([]TensorMeta, 0, len(sd))

	names := make([]string, 0, len(sd))
	for name := range sd {
		names = append(names, name)
	}
	slices.Sort(names)
	var offset int64
	for _, name := range names {
		t := sd[name]
		size := int64(t.NumElements()) * 4
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  DTypeFloat32,
			Shape:  []int(t.Shape().Clone()),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}
	if err := validateHeader(&header, offset); err != nil {
		return Header{}, fmt.Errorf("invalid state dict: %w", err)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return Header{}, fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return Header{}, ErrHeaderTooLarge
	}

	hash := sha256.New()
	out := io.MultiWriter(w, hash)

	if _, err := io.WriteString(out, MagicBytes); err != nil {
		return Header{}, fmt.Errorf("failed to write magic bytes: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return Header{}, fmt.Errorf("failed to write version: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return Header{}, fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := out.Write(headerJSON); err != nil {
		return Header{}, fmt.Errorf("failed to write header: %w", err)
	}

	for _, name := range names {
		data := sd[name].Data()
		raw := make([]byte, 4*len(data))
		for i, v := range data {
			binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
		}
		if _, err := out.Write(raw); err != nil {
			return Header{}, fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}

	if _, err := w.Write(hash.Sum(nil)); err != nil {
		return Header{}, fmt.Errorf("failed to write checksum: %w", err)
	}
	return header, nil
}
