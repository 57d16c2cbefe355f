package trie

import (
	"github.com/hupe1980/sketchindex"
	"github.com/hupe1980/sketchindex/internal/sigiter"
	"github.com/hupe1980/sketchindex/internal/vbits"
)

// Searcher owns the per-query scratch (the query's suffix vertical
// bitcode, recomputed once per Search call) for one Index. Not safe for
// concurrent use by multiple queries; build one Searcher per goroutine
// via Index.NewSearcher.
type Searcher struct {
	idx      *Index
	querySuf vbits.Code
}

// Search appends every (id, errs) pair within Hamming distance k of
// query to dst and returns the extended slice. Returns ErrSearchAbort
// if the total expected enumeration count across e in [0, k] over the
// perfect-prefix depth would exceed SigLimit (the perfect prefix is the
// only part of the trie descent whose branching resembles the
// signature generator's combinatorial explosion).
func (s *Searcher) Search(query sketchindex.Sketch, k int, dst []sketchindex.Score, stat *sketchindex.Stat) ([]sketchindex.Score, error) {
	idx := s.idx
	cfg := idx.cfg

	if idx.hp > 0 {
		if expected := sigiter.ExpectedEnumerations(idx.hp, k, cfg.Sigma()); expected > sketchindex.SigLimit {
			idx.logger.LogSearchAbort(nil, k, expected)
			return nil, sketchindex.ErrSearchAbort
		}
	}

	mask := cfg.Mask()
	q := make([]byte, cfg.Dim)
	for i := 0; i < cfg.Dim; i++ {
		q[i] = query[i] & mask
	}

	s.querySuf = orAlloc(s.querySuf, cfg.Bits)
	vbits.EncodeInto(s.querySuf, q[idx.hm:], idx.ms, cfg.Bits)

	var err error
	s.descendPrefix(q, 0, 0, 0, k, func(rank, errs int) {
		if err != nil {
			return
		}
		dst, err = s.descendMedium(q, idx.hp, rank, errs, k, dst, stat)
	})
	return dst, err
}

func orAlloc(dst vbits.Code, n int) vbits.Code {
	if cap(dst) < n {
		return make(vbits.Code, n)
	}
	return dst[:n]
}

func (s *Searcher) descendPrefix(q []byte, h, rank, errs, k int, visit func(rank, errs int)) {
	idx := s.idx
	if h == idx.hp {
		visit(rank, errs)
		return
	}
	sigma := idx.cfg.Sigma()
	for c := 0; c < sigma; c++ {
		newErrs := errs
		if c != int(q[h]) {
			newErrs++
		}
		if newErrs > k {
			continue
		}
		s.descendPrefix(q, h+1, rank*sigma+c, newErrs, k, visit)
	}
}

func (s *Searcher) descendMedium(q []byte, h, rank, errs, k int, dst []sketchindex.Score, stat *sketchindex.Stat) ([]sketchindex.Score, error) {
	idx := s.idx
	if h == idx.hm {
		return s.verifySuffix(rank, errs, k, dst, stat)
	}

	level := idx.levels[h-idx.hp]
	var err error
	if level.kind == repDHT {
		dst, err = s.descendDHT(q, h, rank, errs, k, level, dst, stat)
	} else {
		dst, err = s.descendLIST(q, h, rank, errs, k, level, dst, stat)
	}
	return dst, err
}

func (s *Searcher) descendDHT(q []byte, h, rank, errs, k int, level levelAux, dst []sketchindex.Score, stat *sketchindex.Stat) ([]sketchindex.Score, error) {
	idx := s.idx
	sigma := idx.cfg.Sigma()
	posBeg := level.regionBegin + (rank << uint(idx.cfg.Bits))

	tryChild := func(i int) error {
		if !idx.dhts.Get(posBeg + i) {
			return nil
		}
		nextRank := idx.dhts.Rank1(posBeg+i+1) - 1 - level.prefixSum
		newErrs := errs
		if i != int(q[h]) {
			newErrs++
		}
		var err error
		dst, err = s.descendMedium(q, h+1, nextRank, newErrs, k, dst, stat)
		return err
	}

	if errs < k {
		for i := 0; i < sigma; i++ {
			if err := tryChild(i); err != nil {
				return dst, err
			}
		}
	} else if err := tryChild(int(q[h])); err != nil {
		return dst, err
	}
	return dst, nil
}

func (s *Searcher) descendLIST(q []byte, h, rank, errs, k int, level levelAux, dst []sketchindex.Score, stat *sketchindex.Stat) ([]sketchindex.Score, error) {
	idx := s.idx
	start := idx.listBits.Select1(rank + level.prefixSum)
	if start < 0 {
		return dst, nil
	}

	pos := start
	for {
		sym := int(idx.listChars.Get(pos))
		childRank := pos - level.regionBegin
		newErrs := errs
		if sym != int(q[h]) {
			newErrs++
		}
		if newErrs <= k && (errs < k || sym == int(q[h])) {
			var err error
			dst, err = s.descendMedium(q, h+1, childRank, newErrs, k, dst, stat)
			if err != nil {
				return dst, err
			}
		}

		pos++
		if pos >= idx.listBits.Len() || idx.listBits.Get(pos) {
			break
		}
	}
	return dst, nil
}

func (s *Searcher) verifySuffix(rank, errs, k int, dst []sketchindex.Score, stat *sketchindex.Stat) ([]sketchindex.Score, error) {
	idx := s.idx
	begin := idx.leafBegs.Select1(rank)
	end := idx.leafBegs.Select1(rank + 1)

	for entryIdx := begin; entryIdx < end; entryIdx++ {
		budget := k - errs
		dist := vbits.Hamming(s.querySuf, idx.sufCodes[entryIdx], budget)
		if stat != nil {
			stat.NumCands++
		}
		if dist > budget {
			continue
		}
		totalErrs := errs + dist

		idBeg := idx.idBegs.Select1(entryIdx)
		idEnd := idx.idBegs.Select1(entryIdx + 1)
		for idPos := idBeg; idPos < idEnd; idPos++ {
			dst = append(dst, sketchindex.Score{ID: idx.ids.Get(idPos), Errs: totalErrs})
		}
	}
	return dst, nil
}
