// Package checkpoint stores translation models on disk.
//
// File layout (all integers little-endian):
//
//	magic    "NMTC"
//	version  uint32
//	size     uint64  length of the JSON header
//	header   JSON    Header
//	data     float32 tensor data, in header order
//	checksum [32]byte SHA-256 of everything before it
package checkpoint

import (
	"time"

	"github.com/google/uuid"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/config"
)

// Format constants.
const (
	MagicBytes    = "NMTC"
	FormatVersion = 1
	ChecksumSize  = 32 // SHA-256
	prefixSize    = 4 + 4 + 8
)

// Validation limits.
const (
	MaxHeaderSize    = 16 * 1024 * 1024
	MaxTensorCount   = 10_000
	MaxTensorNameLen = 1024
	MaxTensorBytes   = 1 << 40
)

// DTypeFloat32 is the only stored data type.
const DTypeFloat32 = "float32"

// Header is the JSON header of a checkpoint.
type Header struct {
	FormatVersion int               `json:"format_version"`
	RunID         uuid.UUID         `json:"run_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Config        config.Config     `json:"config"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TensorMeta locates one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "decoder.cell.weight_ih"
	DType  string `json:"dtype"`  // always "float32"
	Shape  []int  `json:"shape"`  // tensor shape
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}
