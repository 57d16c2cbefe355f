package bvecsio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/sketchindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(dim int, row []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dim))
	buf.Write(row)
	return buf.Bytes()
}

func TestReadWriteRoundTrip(t *testing.T) {
	conf := sketchindex.Config{Dim: 4, Bits: 2}
	flat := []byte{0, 1, 2, 3, 3, 2, 1, 0}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, flat, conf))

	got, err := Read(&buf, conf)
	require.NoError(t, err)
	assert.Equal(t, flat, got)
}

func TestReadMasksSymbolsAndIgnoresExtraDims(t *testing.T) {
	conf := sketchindex.Config{Dim: 2, Bits: 2} // mask 0b11

	var buf bytes.Buffer
	buf.Write(record(3, []byte{0b1111, 0b0101, 0xFF})) // wider than conf.Dim

	got, err := Read(&buf, conf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0b0011, 0b0001}, got)
}

func TestReadRejectsDimBelowConfigured(t *testing.T) {
	conf := sketchindex.Config{Dim: 4, Bits: 2}

	var buf bytes.Buffer
	buf.Write(record(2, []byte{0, 0}))

	_, err := Read(&buf, conf)
	require.Error(t, err)
	var ioErr *sketchindex.IoError
	require.ErrorAs(t, err, &ioErr)
}

func TestReadRejectsDimAboveMaxDim(t *testing.T) {
	conf := sketchindex.Config{Dim: 4, Bits: 2}

	var buf bytes.Buffer
	buf.Write(record(sketchindex.MaxDim+1, make([]byte, sketchindex.MaxDim+1)))

	_, err := Read(&buf, conf)
	require.Error(t, err)
}

func TestReadRejectsTruncatedPayload(t *testing.T) {
	conf := sketchindex.Config{Dim: 4, Bits: 2}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(4))
	buf.Write([]byte{0, 1}) // only 2 of 4 bytes

	_, err := Read(&buf, conf)
	require.Error(t, err)
}

func TestCorpusLoadAndSketch(t *testing.T) {
	conf := sketchindex.Config{Dim: 3, Bits: 3}
	flat := []byte{0, 1, 2, 7, 6, 5}

	path := filepath.Join(t.TempDir(), "corpus.bvecs")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Write(f, flat, conf))
	require.NoError(t, f.Close())

	c, err := Load(path, conf)
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, 2, c.Len())
	assert.Equal(t, sketchindex.Sketch{0, 1, 2}, c.Sketch(0))
	assert.Equal(t, sketchindex.Sketch{7, 6, 5}, c.Sketch(1))
}

func TestCorpusLoadRejectsTruncatedHeader(t *testing.T) {
	conf := sketchindex.Config{Dim: 3, Bits: 3}

	path := filepath.Join(t.TempDir(), "bad.bvecs")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	_, err := Load(path, conf)
	require.Error(t, err)
}
