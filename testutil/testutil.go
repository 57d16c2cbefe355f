package testutil

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/sketchindex"
)

// RNG wraps a seeded math/rand source. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Sketches generates num random sketches of the given dim, each symbol
// uniform in [0, sigma). Uses a single backing array for efficiency.
func (r *RNG) Sketches(num, dim, sigma int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	flat := make([]byte, num*dim)
	for i := range flat {
		flat[i] = byte(r.rand.Intn(sigma))
	}
	return flat
}

// Sketch generates a single random sketch of the given dim.
func (r *RNG) Sketch(dim, sigma int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := make([]byte, dim)
	for i := range s {
		s[i] = byte(r.rand.Intn(sigma))
	}
	return s
}

// Mutate returns a copy of sketch with exactly numDiffs distinct
// positions changed to a different symbol in [0, sigma). Panics if
// numDiffs exceeds len(sketch); callers control dim accordingly.
func (r *RNG) Mutate(sketch []byte, numDiffs, sigma int) []byte {
	if numDiffs > len(sketch) {
		panic("testutil: Mutate numDiffs exceeds sketch length")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := append([]byte(nil), sketch...)
	changed := map[int]bool{}
	for len(changed) < numDiffs {
		pos := r.rand.Intn(len(out))
		if changed[pos] {
			continue
		}
		changed[pos] = true

		orig := out[pos]
		for {
			v := byte(r.rand.Intn(sigma))
			if v != orig {
				out[pos] = v
				break
			}
		}
	}
	return out
}

// BruteForceSearch computes exact Hamming-distance ground truth: every
// row within k of query, sorted by (id, errs). ids[i] is the id of
// sketches[i*dim:(i+1)*dim]; row index is used if ids is nil.
func BruteForceSearch(sketches []byte, dim int, ids []uint64, query []byte, k int) []sketchindex.Score {
	n := len(sketches) / dim
	var out []sketchindex.Score
	for row := 0; row < n; row++ {
		key := sketches[row*dim : (row+1)*dim]
		d := 0
		for j := 0; j < dim; j++ {
			if key[j] != query[j] {
				d++
			}
		}
		if d <= k {
			id := uint64(row)
			if ids != nil {
				id = ids[row]
			}
			out = append(out, sketchindex.Score{ID: id, Errs: d})
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

// ComputeRecall computes recall@k by comparing approximate results
// against ground truth, matching on id alone.
func ComputeRecall(groundTruth, approximate []sketchindex.Score) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	truthSet := make(map[uint64]struct{}, len(groundTruth))
	for _, s := range groundTruth {
		truthSet[s.ID] = struct{}{}
	}

	hits := 0
	for _, s := range approximate {
		if _, ok := truthSet[s.ID]; ok {
			hits++
		}
	}

	return float64(hits) / float64(len(groundTruth))
}
