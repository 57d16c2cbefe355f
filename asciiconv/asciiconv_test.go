package asciiconv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hupe1980/sketchindex"
	"github.com/hupe1980/sketchindex/bvecsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertProducesReadableBvecsStream(t *testing.T) {
	input := "0 1 2 3\n255 0 128 7\n"

	var out bytes.Buffer
	require.NoError(t, Convert(strings.NewReader(input), &out))

	conf := sketchindex.Config{Dim: 4, Bits: 8}
	flat, err := bvecsio.Read(&out, conf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3, 255, 0, 128, 7}, flat)
}

func TestConvertSkipsBlankLines(t *testing.T) {
	input := "0 1\n\n   \n2 3\n"

	var out bytes.Buffer
	require.NoError(t, Convert(strings.NewReader(input), &out))

	conf := sketchindex.Config{Dim: 2, Bits: 8}
	flat, err := bvecsio.Read(&out, conf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, flat)
}

func TestConvertRejectsNonIntegerToken(t *testing.T) {
	var out bytes.Buffer
	err := Convert(strings.NewReader("0 abc 2\n"), &out)
	require.Error(t, err)

	var parseErr *sketchindex.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 1, parseErr.Line)
	assert.Equal(t, "abc", parseErr.Token)
}

func TestConvertRejectsOutOfRangeValue(t *testing.T) {
	var out bytes.Buffer
	err := Convert(strings.NewReader("0 1\n256 2\n"), &out)
	require.Error(t, err)

	var parseErr *sketchindex.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, parseErr.Line)
	assert.Equal(t, "256", parseErr.Token)
}

func TestConvertRejectsNegativeValue(t *testing.T) {
	var out bytes.Buffer
	err := Convert(strings.NewReader("-1 2\n"), &out)
	require.Error(t, err)

	var parseErr *sketchindex.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "-1", parseErr.Token)
}
