package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/config"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/nn"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/seq2seq"
	"github.com/Xinyu-Kang/Neural-Machine-Translation/internal/tensor"
)

func smallModel(t *testing.T) *seq2seq.Model {
	t.Helper()
	cfg := config.Default()
	cfg.Model.SourceVocabSize = 20
	cfg.Model.TargetVocabSize = 20
	cfg.Model.WordEmbeddingSize = 4
	cfg.Model.EncoderHiddenSize = 4
	cfg.Model.Attention = "multihead"
	cfg.Model.Heads = 2
	cfg.Decode = config.DecodeConfig{BeamWidth: 2, MaxSteps: 4}
	mdl, err := seq2seq.New(cfg, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	return mdl
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	mdl := smallModel(t)
	path := filepath.Join(t.TempDir(), "model.nmtc")

	saved, err := SaveModel(path, mdl)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.RunID)
	assert.Equal(t, FormatVersion, saved.FormatVersion)

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, saved.RunID, f.Header.RunID)
	assert.True(t, saved.CreatedAt.Equal(f.Header.CreatedAt))
	assert.Equal(t, mdl.Config, f.Header.Config)

	want := mdl.StateDict()
	require.Len(t, f.Tensors, len(want))
	for name, w := range want {
		got, ok := f.Tensors[name]
		require.True(t, ok, name)
		assert.Equal(t, w.Shape(), got.Shape(), name)
		assert.Equal(t, w.Data(), got.Data(), name)
	}

	restored, err := f.Model()
	require.NoError(t, err)
	F := [][]int{{4, 5}, {6, 0}}
	lens := []int{2, 1}
	assert.Equal(t, mdl.Translate(F, lens), restored.Translate(F, lens))
}

func TestWrite_TensorOrder(t *testing.T) {
	sd := nn.StateDict{
		"b": tensor.New([]float32{1, 2}, tensor.Shape{2}),
		"a": tensor.New([]float32{3, 4, 5, 6}, tensor.Shape{2, 2}),
	}
	var buf bytes.Buffer
	h, err := Write(&buf, Header{Config: config.Default()}, sd)
	require.NoError(t, err)

	require.Len(t, h.Tensors, 2)
	assert.Equal(t, TensorMeta{Name: "a", DType: DTypeFloat32, Shape: []int{2, 2}, Offset: 0, Size: 16}, h.Tensors[0])
	assert.Equal(t, TensorMeta{Name: "b", DType: DTypeFloat32, Shape: []int{2}, Offset: 16, Size: 8}, h.Tensors[1])

	f, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4, 5, 6}, f.Tensors["a"].Data())
}

func TestWrite_RejectsBadNames(t *testing.T) {
	sd := nn.StateDict{"../escape": tensor.New([]float32{1}, tensor.Shape{1})}
	_, err := Write(&bytes.Buffer{}, Header{}, sd)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func encoded(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := Write(&buf, Header{Config: config.Default()}, nn.StateDict{
		"w": tensor.New([]float32{1, 2, 3}, tensor.Shape{3}),
	})
	require.NoError(t, err)
	return buf.Bytes()
}

// reseal recomputes the trailing checksum after body edits.
func reseal(data []byte) []byte {
	body := data[:len(data)-ChecksumSize]
	sum := sha256.Sum256(body)
	return append(bytes.Clone(body), sum[:]...)
}

// build assembles a file around an arbitrary header and data section.
func build(t *testing.T, header Header, section []byte) []byte {
	t.Helper()
	js, err := json.Marshal(header)
	require.NoError(t, err)
	var buf bytes.Buffer
	buf.WriteString(MagicBytes)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(FormatVersion)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(js))))
	buf.Write(js)
	buf.Write(section)
	buf.Write(make([]byte, ChecksumSize))
	return reseal(buf.Bytes())
}

func TestDecode_Errors(t *testing.T) {
	good := encoded(t)

	t.Run("truncated", func(t *testing.T) {
		_, err := Decode(good[:10])
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(good)
		copy(bad, "BORN")
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("checksum", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[len(bad)-ChecksumSize-1] ^= 0xff
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("version", func(t *testing.T) {
		bad := bytes.Clone(good)
		binary.LittleEndian.PutUint32(bad[4:], 7)
		_, err := Decode(reseal(bad))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("header size", func(t *testing.T) {
		bad := bytes.Clone(good)
		binary.LittleEndian.PutUint64(bad[8:], MaxHeaderSize+1)
		_, err := Decode(reseal(bad))
		assert.ErrorIs(t, err, ErrHeaderTooLarge)

		binary.LittleEndian.PutUint64(bad[8:], uint64(len(bad)))
		_, err = Decode(reseal(bad))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("overlap", func(t *testing.T) {
		data := build(t, Header{FormatVersion: FormatVersion, Tensors: []TensorMeta{
			{Name: "a", DType: DTypeFloat32, Shape: []int{2}, Offset: 0, Size: 8},
			{Name: "b", DType: DTypeFloat32, Shape: []int{2}, Offset: 4, Size: 8},
		}}, make([]byte, 12))
		_, err := Decode(data)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "offset_overlap", verr.Type)
	})

	t.Run("out of bounds", func(t *testing.T) {
		data := build(t, Header{FormatVersion: FormatVersion, Tensors: []TensorMeta{
			{Name: "a", DType: DTypeFloat32, Shape: []int{4}, Offset: 0, Size: 16},
		}}, make([]byte, 8))
		_, err := Decode(data)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "out_of_bounds", verr.Type)
	})

	t.Run("size mismatch", func(t *testing.T) {
		data := build(t, Header{FormatVersion: FormatVersion, Tensors: []TensorMeta{
			{Name: "a", DType: DTypeFloat32, Shape: []int{3}, Offset: 0, Size: 8},
		}}, make([]byte, 8))
		_, err := Decode(data)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "size_mismatch", verr.Type)
	})

	t.Run("tensor too large", func(t *testing.T) {
		shapes := [][]int{
			{1 << 31, 1 << 31, 1 << 31},
			{1 << 62, 4}, // element count wraps to 0 in int64
		}
		for _, shape := range shapes {
			data := build(t, Header{FormatVersion: FormatVersion, Tensors: []TensorMeta{
				{Name: "a", DType: DTypeFloat32, Shape: shape, Offset: 0, Size: 0},
			}}, make([]byte, 8))
			_, err := Decode(data)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr, "shape %v", shape)
			assert.Equal(t, "tensor_too_large", verr.Type)
		}
	})

	t.Run("dtype", func(t *testing.T) {
		data := build(t, Header{FormatVersion: FormatVersion, Tensors: []TensorMeta{
			{Name: "a", DType: "float64", Shape: []int{1}, Offset: 0, Size: 4},
		}}, make([]byte, 8))
		_, err := Decode(data)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "invalid_dtype", verr.Type)
	})
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.nmtc"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFile_ModelRejectsMismatchedTensors(t *testing.T) {
	mdl := smallModel(t)
	sd := mdl.StateDict()
	delete(sd, "decoder.ff.weight")

	path := filepath.Join(t.TempDir(), "partial.nmtc")
	_, err := Save(path, mdl.Config, sd)
	require.NoError(t, err)

	f, err := Load(path)
	require.NoError(t, err)
	_, err = f.Model()
	assert.Error(t, err)
}

func TestValidationError_Message(t *testing.T) {
	assert.Equal(t, "x: d", (&ValidationError{Type: "x", Details: "d"}).Error())
	assert.Equal(t, `x: tensor "a": d`, (&ValidationError{Type: "x", Tensor: "a", Details: "d"}).Error())
	assert.Equal(t, `x: tensors "a" and "b": d`,
		(&ValidationError{Type: "x", Tensor: "a", Tensor2: "b", Details: "d"}).Error())
}
