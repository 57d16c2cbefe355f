package hash

import (
	"bytes"
	"sort"
	"testing"

	"github.com/hupe1980/sketchindex"
	"github.com/hupe1980/sketchindex/internal/entryset"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, keys [][]byte, cfg sketchindex.Config) *Index {
	t.Helper()
	flat := make([]byte, 0, len(keys)*cfg.Dim)
	for _, k := range keys {
		flat = append(flat, k...)
	}
	set := entryset.Build(flat, cfg.Dim, nil)
	idx, err := Build(set, cfg)
	require.NoError(t, err)
	return idx
}

func search(t *testing.T, idx *Index, query []byte, k int) []sketchindex.Score {
	t.Helper()
	s := idx.NewSearcher()
	got, err := s.Search(sketchindex.Sketch(query), k, nil, &sketchindex.Stat{})
	require.NoError(t, err)
	sort.Slice(got, func(i, j int) bool {
		if got[i].ID != got[j].ID {
			return got[i].ID < got[j].ID
		}
		return got[i].Errs < got[j].Errs
	})
	return got
}

func TestScenarioS1(t *testing.T) {
	cfg := sketchindex.Config{Dim: 4, Bits: 2, Blocks: 1}
	idx := buildIndex(t, [][]byte{
		{0, 0, 0, 0},
		{0, 0, 0, 1},
		{3, 3, 3, 3},
	}, cfg)

	got := search(t, idx, []byte{0, 0, 0, 0}, 0)
	require.Equal(t, []sketchindex.Score{{ID: 0, Errs: 0}}, got)

	got = search(t, idx, []byte{0, 0, 0, 0}, 1)
	require.Equal(t, []sketchindex.Score{{ID: 0, Errs: 0}, {ID: 1, Errs: 1}}, got)
}

func TestScenarioS2(t *testing.T) {
	cfg := sketchindex.Config{Dim: 4, Bits: 2, Blocks: 1}
	idx := buildIndex(t, [][]byte{
		{0, 0, 0, 0},
		{0, 0, 0, 1},
		{3, 3, 3, 3},
	}, cfg)

	got := search(t, idx, []byte{3, 3, 3, 3}, 2)
	require.Equal(t, []sketchindex.Score{{ID: 2, Errs: 0}}, got)

	got = search(t, idx, []byte{3, 3, 3, 3}, 4)
	require.Equal(t, []sketchindex.Score{{ID: 0, Errs: 4}, {ID: 1, Errs: 4}, {ID: 2, Errs: 0}}, got)
}

func TestScenarioS3DuplicateKeysPreserveDistinctIDs(t *testing.T) {
	cfg := sketchindex.Config{Dim: 4, Bits: 2, Blocks: 1}
	idx := buildIndex(t, [][]byte{
		{1, 2, 3, 0},
		{1, 2, 3, 0},
		{0, 0, 0, 0},
	}, cfg)

	got := search(t, idx, []byte{1, 2, 3, 0}, 0)
	require.Equal(t, []sketchindex.Score{{ID: 0, Errs: 0}, {ID: 1, Errs: 0}}, got)
}

func TestSearchAbortOnSignatureExplosion(t *testing.T) {
	cfg := sketchindex.Config{Dim: 64, Bits: 8, Blocks: 1}
	idx := buildIndex(t, [][]byte{make([]byte, 64)}, cfg)

	_, err := idx.NewSearcher().Search(sketchindex.Sketch(make([]byte, 64)), 64, nil, nil)
	require.ErrorIs(t, err, sketchindex.ErrSearchAbort)
}

func TestRoundTripSerializeLoad(t *testing.T) {
	cfg := sketchindex.Config{Dim: 4, Bits: 2, Blocks: 1}
	idx := buildIndex(t, [][]byte{
		{0, 0, 0, 0},
		{0, 0, 0, 1},
		{3, 3, 3, 3},
	}, cfg)

	var buf bytes.Buffer
	_, err := idx.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Equal(t, idx.NumKeys(), loaded.NumKeys())

	for _, q := range [][]byte{{0, 0, 0, 0}, {3, 3, 3, 3}} {
		for k := 0; k <= 4; k++ {
			require.Equal(t, search(t, idx, q, k), search(t, loaded, q, k))
		}
	}
}
