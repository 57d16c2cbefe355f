package packed

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendGetRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, width := range []uint{1, 3, 5, 7, 8, 13, 31, 40, 64} {
		arr := NewArray(width, 100)
		mask := uint64(1)<<width - 1
		if width == 64 {
			mask = ^uint64(0)
		}

		values := make([]uint64, 200)
		for i := range values {
			values[i] = rng.Uint64() & mask
			arr.Append(values[i])
		}

		for i, v := range values {
			require.Equal(t, v, arr.Get(i), "width=%d i=%d", width, i)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	arr := NewArray(11, 10)
	for i := 0; i < 50; i++ {
		arr.Append(uint64(i * 3 % 2048))
	}

	var buf bytes.Buffer
	_, err := arr.WriteTo(&buf)
	require.NoError(t, err)

	loaded := &Array{}
	_, err = loaded.ReadFrom(&buf)
	require.NoError(t, err)

	require.Equal(t, arr.Len(), loaded.Len())
	require.Equal(t, arr.Width(), loaded.Width())
	for i := 0; i < arr.Len(); i++ {
		require.Equal(t, arr.Get(i), loaded.Get(i))
	}
}

func TestBitsForRange(t *testing.T) {
	require.Equal(t, uint(1), BitsForRange(0))
	require.Equal(t, uint(1), BitsForRange(1))
	require.Equal(t, uint(2), BitsForRange(2))
	require.Equal(t, uint(2), BitsForRange(3))
	require.Equal(t, uint(3), BitsForRange(4))
}
