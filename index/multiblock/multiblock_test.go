package multiblock

import (
	"bytes"
	"math/rand"
	"sort"
	"testing"

	"github.com/hupe1980/sketchindex"
	"github.com/hupe1980/sketchindex/index"
	"github.com/stretchr/testify/require"
)

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

func bruteForce(keys [][]byte, query []byte, k, dim int) []sketchindex.Score {
	var out []sketchindex.Score
	for id, key := range keys {
		d := 0
		for j := 0; j < dim; j++ {
			if key[j] != query[j] {
				d++
			}
		}
		if d <= k {
			out = append(out, sketchindex.Score{ID: uint64(id), Errs: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Errs < out[j].Errs
	})
	return out
}

func flatten(keys [][]byte) []byte {
	var flat []byte
	for _, k := range keys {
		flat = append(flat, k...)
	}
	return flat
}

// TestScenarioS4MultiBlockFindsMutatedKey covers spec scenario S4: a
// query mutated from key 0 in exactly 3 positions must recover key 0 at
// errs=3, and every brute-force neighbor within budget must appear
// exactly once.
func TestScenarioS4MultiBlockFindsMutatedKey(t *testing.T) {
	const dim, bits, b, n = 8, 2, 2, 40
	cfg := sketchindex.Config{Dim: dim, Bits: bits, Blocks: b}
	sigma := cfg.Sigma()

	rng := rand.New(rand.NewSource(7))
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = make([]byte, dim)
		for j := range keys[i] {
			keys[i][j] = byte(rng.Intn(sigma))
		}
	}

	query := append([]byte(nil), keys[0]...)
	mutated := map[int]bool{}
	for len(mutated) < 3 {
		pos := rng.Intn(dim)
		if mutated[pos] {
			continue
		}
		mutated[pos] = true
		orig := query[pos]
		for {
			v := byte(rng.Intn(sigma))
			if v != orig {
				query[pos] = v
				break
			}
		}
	}

	for kind, name := range map[index.Kind]string{index.KindHash: "hash", index.KindTrie: "trie"} {
		t.Run(name, func(t *testing.T) {
			idx, err := Build(kind, flatten(keys), cfg, nil)
			require.NoError(t, err)

			got := search(t, idx, query, 3)
			want := bruteForce(keys, query, 3, dim)
			require.Equal(t, want, got)

			found := false
			for _, s := range got {
				if s.ID == 0 {
					require.Equal(t, 3, s.Errs)
					found = true
				}
			}
			require.True(t, found, "key 0 must be recovered at errs=3")
		})
	}
}

// TestScenarioS5EmptyResult covers spec scenario S5: a query with no
// neighbor within k returns an empty result without error.
func TestScenarioS5EmptyResult(t *testing.T) {
	const dim, bits, b = 8, 2, 2
	cfg := sketchindex.Config{Dim: dim, Bits: bits, Blocks: b}

	keys := [][]byte{
		{0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 0, 1},
	}
	idx, err := Build(index.KindHash, flatten(keys), cfg, nil)
	require.NoError(t, err)

	got := search(t, idx, []byte{3, 3, 3, 3, 3, 3, 3, 3}, 1)
	require.Empty(t, got)
}

func TestExactnessAgainstBruteForceOverRandomCorpus(t *testing.T) {
	const dim, bits, b, n = 10, 2, 3, 60
	cfg := sketchindex.Config{Dim: dim, Bits: bits, Blocks: b}
	sigma := cfg.Sigma()

	rng := rand.New(rand.NewSource(13))
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = make([]byte, dim)
		for j := range keys[i] {
			keys[i][j] = byte(rng.Intn(sigma))
		}
	}

	for kind, name := range map[index.Kind]string{index.KindHash: "hash", index.KindTrie: "trie"} {
		t.Run(name, func(t *testing.T) {
			idx, err := Build(kind, flatten(keys), cfg, nil)
			require.NoError(t, err)

			for trial := 0; trial < 10; trial++ {
				query := make([]byte, dim)
				for j := range query {
					query[j] = byte(rng.Intn(sigma))
				}
				for _, k := range []int{b - 1, b, b + 2} {
					got := search(t, idx, query, k)
					want := bruteForce(keys, query, k, dim)
					require.Equal(t, want, got, "query=%v k=%d", query, k)
				}
			}
		})
	}
}

func TestSubBudgetBelowBlocksMinusOneReturnsEmptyWithoutError(t *testing.T) {
	const dim, bits, b = 6, 2, 3
	cfg := sketchindex.Config{Dim: dim, Bits: bits, Blocks: b}

	keys := [][]byte{{0, 0, 0, 0, 0, 0}}
	idx, err := Build(index.KindHash, flatten(keys), cfg, nil)
	require.NoError(t, err)

	got := search(t, idx, []byte{1, 1, 0, 0, 0, 0}, b-2)
	require.Empty(t, got)
}

func TestRoundTripSerializeLoad(t *testing.T) {
	const dim, bits, b = 8, 2, 2
	cfg := sketchindex.Config{Dim: dim, Bits: bits, Blocks: b}

	keys := [][]byte{
		{0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 0, 1},
		{3, 3, 3, 3, 3, 3, 3, 3},
	}
	idx, err := Build(index.KindTrie, flatten(keys), cfg, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = idx.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Equal(t, idx.NumKeys(), loaded.NumKeys())

	for _, q := range [][]byte{{0, 0, 0, 0, 0, 0, 0, 0}, {3, 3, 3, 3, 3, 3, 3, 3}} {
		for k := 0; k <= 4; k++ {
			require.Equal(t, search(t, idx, q, k), search(t, loaded, q, k))
		}
	}
}

func TestConfigValidateMultiBlockRejectsSingleBlock(t *testing.T) {
	cfg := sketchindex.Config{Dim: 4, Bits: 2, Blocks: 1}
	_, err := Build(index.KindHash, make([]byte, 4), cfg, nil)
	require.Error(t, err)
}
