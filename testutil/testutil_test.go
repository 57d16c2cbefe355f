package testutil

import (
	"testing"

	"github.com/hupe1980/sketchindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSketches(t *testing.T) {
	rng := NewRNG(4711)

	flat := rng.Sketches(8, 32, 4)
	assert.Equal(t, 8*32, len(flat))
	for _, v := range flat {
		assert.Less(t, int(v), 4)
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.Sketches(4, 10, 4)

	rng.Reset()
	v2 := rng.Sketches(4, 10, 4)

	assert.Equal(t, v1, v2)
}

func TestMutateChangesExactlyNPositions(t *testing.T) {
	rng := NewRNG(99)
	base := rng.Sketch(16, 4)

	mutated := rng.Mutate(base, 3, 4)
	require.Len(t, mutated, len(base))

	diffs := 0
	for i := range base {
		if base[i] != mutated[i] {
			diffs++
		}
	}
	assert.Equal(t, 3, diffs)
}

func TestBruteForceSearchMatchesDirectCount(t *testing.T) {
	const dim = 4
	flat := []byte{
		0, 0, 0, 0,
		0, 0, 0, 1,
		3, 3, 3, 3,
	}

	got := BruteForceSearch(flat, dim, nil, []byte{0, 0, 0, 0}, 1)
	want := []sketchindex.Score{{ID: 0, Errs: 0}, {ID: 1, Errs: 1}}
	assert.Equal(t, want, got)
}

func TestBruteForceSearchWithCustomIDs(t *testing.T) {
	const dim = 4
	flat := []byte{0, 0, 0, 0, 3, 3, 3, 3}
	ids := []uint64{100, 200}

	got := BruteForceSearch(flat, dim, ids, []byte{0, 0, 0, 0}, 0)
	assert.Equal(t, []sketchindex.Score{{ID: 100, Errs: 0}}, got)
}

func TestComputeRecall(t *testing.T) {
	truth := []sketchindex.Score{{ID: 1, Errs: 0}, {ID: 2, Errs: 1}, {ID: 3, Errs: 1}}
	approx := []sketchindex.Score{{ID: 1, Errs: 0}, {ID: 3, Errs: 1}}

	assert.InDelta(t, 2.0/3.0, ComputeRecall(truth, approx), 1e-9)
	assert.Equal(t, 1.0, ComputeRecall(nil, nil))
	assert.Equal(t, 0.0, ComputeRecall(truth, nil))
}
