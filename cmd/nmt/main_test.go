package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunBLEU(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "ref.txt", "the cat sat on the mat .\nhello world\n")
	cand := writeFile(t, dir, "cand.txt", "the cat sat on the mat .\ngoodbye\n")

	var out bytes.Buffer
	require.NoError(t, runBLEU([]string{"-ref", ref, "-cand", cand}, &out))
	assert.Equal(t, "1\t1.0000\n2\t0.0000\nmean\t0.5000\n", out.String())
}

func TestRunBLEU_Errors(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "ref.txt", "a b\nc d\n")
	cand := writeFile(t, dir, "cand.txt", "a b\n")

	assert.Error(t, runBLEU([]string{}, &bytes.Buffer{}))
	assert.Error(t, runBLEU([]string{"-ref", ref, "-cand", cand}, &bytes.Buffer{}))
	assert.Error(t, runBLEU([]string{"-ref", ref, "-cand", ref, "-n", "0"}, &bytes.Buffer{}))
}

func TestInitTranslateEval(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "model.yaml", `
model:
  source_vocab_size: 20
  target_vocab_size: 20
  word_embedding_size: 4
  encoder_hidden_size: 4
  attention: multihead
  heads: 2
decode:
  beam_width: 2
  max_steps: 5
`)
	ckpt := filepath.Join(dir, "model.nmtc")

	var out bytes.Buffer
	require.NoError(t, runInit([]string{"-config", cfg, "-out", ckpt, "-seed", "3"}, &out))
	assert.Contains(t, out.String(), "wrote "+ckpt)

	out.Reset()
	in := strings.NewReader("4 5 6\n\n7 8\n")
	require.NoError(t, runTranslate([]string{"-checkpoint", ckpt}, in, &out))
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "", lines[1])
	for _, line := range []string{lines[0], lines[2]} {
		fields := strings.Split(line, "\t")
		require.Len(t, fields, 2)
		ids, err := parseIDs(fields[0])
		require.NoError(t, err)
		assert.LessOrEqual(t, len(ids), 5)
	}

	assert.Error(t, runTranslate([]string{"-checkpoint", ckpt}, strings.NewReader("99\n"), &bytes.Buffer{}))
	assert.Error(t, runTranslate([]string{}, strings.NewReader(""), &bytes.Buffer{}))

	src := writeFile(t, dir, "src.txt", "4 5 6\n7 8\n9\n")
	ref := writeFile(t, dir, "ref.txt", "10 11\n12\n13 14 15\n")
	out.Reset()
	require.NoError(t, runEval([]string{"-checkpoint", ckpt, "-src", src, "-ref", ref, "-batch", "2"}, &out))
	assert.Contains(t, out.String(), "sentences\t3\n")
	assert.Contains(t, out.String(), "bleu\t")
	assert.Contains(t, out.String(), "loss\t")
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 1  2\t3 ")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Equal(t, "1 2 3", formatIDs(ids))

	_, err = parseIDs("1 x")
	assert.Error(t, err)
}

func TestReadIDLines_KeepsLinePositions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "src.txt", "4 5\n\n6 7\n\n\n")

	got, err := readIDLines(path)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{4, 5}, {}, {6, 7}}, got)

	_, err = readIDLines(writeFile(t, dir, "bad.txt", "1\n\nx\n"))
	assert.ErrorContains(t, err, "bad.txt:3")
}

func TestRunEval_BlankLinesDoNotShiftPairs(t *testing.T) {
	dir := t.TempDir()
	ckpt := filepath.Join(dir, "model.nmtc")
	require.NoError(t, runInit([]string{"-out", ckpt}, &bytes.Buffer{}))

	// Dropping blank lines would leave two entries on each side and pair
	// source "6 7" with reference "9".
	src := writeFile(t, dir, "src.txt", "4 5\n\n6 7\n")
	ref := writeFile(t, dir, "ref.txt", "8\n9\n\n")
	err := runEval([]string{"-checkpoint", ckpt, "-src", src, "-ref", ref}, &bytes.Buffer{})
	assert.Error(t, err)

	ref = writeFile(t, dir, "ref.txt", "8\n9\n10\n")
	err = runEval([]string{"-checkpoint", ckpt, "-src", src, "-ref", ref}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "src.txt:2: empty sentence")

	// A blank reference line is an empty translation of its own source line.
	src = writeFile(t, dir, "src2.txt", "4 5\n6\n6 7\n")
	ref = writeFile(t, dir, "ref2.txt", "8\n\n10\n")
	var out bytes.Buffer
	require.NoError(t, runEval([]string{"-checkpoint", ckpt, "-src", src, "-ref", ref}, &out))
	assert.Contains(t, out.String(), "sentences\t3\n")
}
