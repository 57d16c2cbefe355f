package hash

import (
	"github.com/hupe1980/sketchindex"
	"github.com/hupe1980/sketchindex/internal/sigiter"
)

// Searcher owns the per-query signature-generator scratch for one
// Index. Not safe for concurrent use by multiple queries; build one
// Searcher per goroutine via Index.NewSearcher.
type Searcher struct {
	idx *Index
	gen *sigiter.Generator
}

// Search appends every (id, errs) pair within Hamming distance k of
// query to dst and returns the extended slice. Returns ErrSearchAbort
// if the total expected enumeration count across e in [0, k] would
// exceed SigLimit.
func (s *Searcher) Search(query sketchindex.Sketch, k int, dst []sketchindex.Score, stat *sketchindex.Stat) ([]sketchindex.Score, error) {
	cfg := s.idx.cfg
	if expected := sigiter.ExpectedEnumerations(cfg.Dim, k, cfg.Sigma()); expected > sketchindex.SigLimit {
		s.idx.logger.LogSearchAbort(nil, k, expected)
		return nil, sketchindex.ErrSearchAbort
	}

	masked := make([]byte, cfg.Dim)
	mask := cfg.Mask()
	for i := 0; i < cfg.Dim; i++ {
		masked[i] = query[i] & mask
	}

	for e := 0; e <= k; e++ {
		s.gen.Set(masked, cfg.Dim, e, cfg.Sigma())
		for s.gen.HasNext() {
			sig := s.gen.Next()
			pos, ok := s.idx.find(sig)
			if !ok {
				continue
			}
			slotVal := s.idx.slots[pos]
			for id := slotVal.idBeg; id < slotVal.idEnd; id++ {
				dst = append(dst, sketchindex.Score{ID: s.idx.ids.Get(int(id)), Errs: e})
			}
			if stat != nil {
				stat.NumCands++
			}
		}
	}
	return dst, nil
}
