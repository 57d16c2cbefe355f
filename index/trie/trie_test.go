package trie

import (
	"bytes"
	"math/rand"
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

func defaultCfg(dim int) sketchindex.Config {
	return sketchindex.Config{Dim: dim, Bits: 2, Blocks: 1, SufThr: 2.0, RepType: sketchindex.RepHybrid}
}

func TestScenarioS1(t *testing.T) {
	cfg := defaultCfg(4)
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
	cfg := defaultCfg(4)
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
	cfg := defaultCfg(4)
	idx := buildIndex(t, [][]byte{
		{1, 2, 3, 0},
		{1, 2, 3, 0},
		{0, 0, 0, 0},
	}, cfg)

	got := search(t, idx, []byte{1, 2, 3, 0}, 0)
	require.Equal(t, []sketchindex.Score{{ID: 0, Errs: 0}, {ID: 1, Errs: 0}}, got)
}

func TestScenarioS6RoundTrip(t *testing.T) {
	cfg := defaultCfg(4)
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

	for _, q := range [][]byte{{0, 0, 0, 0}, {3, 3, 3, 3}} {
		for k := 0; k <= 4; k++ {
			require.Equal(t, search(t, idx, q, k), search(t, loaded, q, k))
		}
	}
}

func bruteForce(keys [][]byte, ids []uint64, query []byte, k int, dim int) []sketchindex.Score {
	var out []sketchindex.Score
	for i, key := range keys {
		d := 0
		for j := 0; j < dim; j++ {
			if key[j] != query[j] {
				d++
			}
		}
		if d <= k {
			out = append(out, sketchindex.Score{ID: ids[i], Errs: d})
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

func TestExactnessAgainstBruteForceOverRandomCorpus(t *testing.T) {
	const dim, bits, n = 6, 2, 80
	cfg := defaultCfg(dim)
	cfg.Bits = bits
	sigma := cfg.Sigma()

	rng := rand.New(rand.NewSource(99))
	keys := make([][]byte, n)
	ids := make([]uint64, n)
	flat := make([]byte, 0, n*dim)
	for i := range keys {
		keys[i] = make([]byte, dim)
		for j := range keys[i] {
			keys[i][j] = byte(rng.Intn(sigma))
		}
		ids[i] = uint64(i)
		flat = append(flat, keys[i]...)
	}

	set := entryset.Build(flat, dim, ids)
	idx, err := Build(set, cfg)
	require.NoError(t, err)

	for trial := 0; trial < 15; trial++ {
		query := make([]byte, dim)
		for j := range query {
			query[j] = byte(rng.Intn(sigma))
		}
		for _, k := range []int{0, 1, 2, 3} {
			got := search(t, idx, query, k)
			want := bruteForce(keys, ids, query, k, dim)
			require.Equal(t, want, got, "query=%v k=%d", query, k)
		}
	}
}

func TestExactnessAgainstBruteForceByRepType(t *testing.T) {
	const dim, bits, n = 6, 2, 80

	for _, rt := range []sketchindex.RepType{sketchindex.RepDHT, sketchindex.RepList} {
		t.Run(rt.String(), func(t *testing.T) {
			cfg := defaultCfg(dim)
			cfg.Bits = bits
			cfg.RepType = rt
			sigma := cfg.Sigma()

			rng := rand.New(rand.NewSource(99))
			keys := make([][]byte, n)
			ids := make([]uint64, n)
			flat := make([]byte, 0, n*dim)
			for i := range keys {
				keys[i] = make([]byte, dim)
				for j := range keys[i] {
					keys[i][j] = byte(rng.Intn(sigma))
				}
				ids[i] = uint64(i)
				flat = append(flat, keys[i]...)
			}

			set := entryset.Build(flat, dim, ids)
			idx, err := Build(set, cfg)
			require.NoError(t, err)

			for trial := 0; trial < 15; trial++ {
				query := make([]byte, dim)
				for j := range query {
					query[j] = byte(rng.Intn(sigma))
				}
				for _, k := range []int{0, 1, 2, 3} {
					got := search(t, idx, query, k)
					want := bruteForce(keys, ids, query, k, dim)
					require.Equal(t, want, got, "rep=%s query=%v k=%d", rt, query, k)
				}
			}
		})
	}
}

func TestKZeroIdentity(t *testing.T) {
	cfg := defaultCfg(4)
	idx := buildIndex(t, [][]byte{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
	}, cfg)

	got := search(t, idx, []byte{0, 1, 2, 3}, 0)
	require.Equal(t, []sketchindex.Score{{ID: 0, Errs: 0}}, got)
}

func TestMonotoneRecall(t *testing.T) {
	const dim, bits, n = 5, 2, 40
	cfg := defaultCfg(dim)
	cfg.Bits = bits
	sigma := cfg.Sigma()

	rng := rand.New(rand.NewSource(5))
	flat := make([]byte, 0, n*dim)
	for i := 0; i < n; i++ {
		for j := 0; j < dim; j++ {
			flat = append(flat, byte(rng.Intn(sigma)))
		}
	}
	set := entryset.Build(flat, dim, nil)
	idx, err := Build(set, cfg)
	require.NoError(t, err)

	query := make([]byte, dim)
	for j := range query {
		query[j] = byte(rng.Intn(sigma))
	}

	prevSet := map[sketchindex.Score]bool{}
	for k := 0; k <= dim; k++ {
		got := search(t, idx, query, k)
		cur := map[sketchindex.Score]bool{}
		for _, s := range got {
			cur[s] = true
		}
		for s := range prevSet {
			require.True(t, cur[s], "result at k=%d missing k-1 member %v", k, s)
		}
		prevSet = cur
	}
}
