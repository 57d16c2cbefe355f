package bitseq

import (
	"io"
	"math/bits"
	"sort"
)

// selectIndex accelerates Select1 via binary search over the rank
// index's block totals followed by per-word scanning. It holds a
// back-reference to the rankIndex it was derived from rather than its
// own copy of the payload, so rebinding the BitVector's rankIndex is
// sufficient to keep selectIndex consistent; selectIndex.rebind only
// needs to repoint at the (possibly new) rankIndex value.
type selectIndex struct {
	rank *rankIndex
}

func newSelectIndex(r *rankIndex) *selectIndex {
	return &selectIndex{rank: r}
}

func (s *selectIndex) rebind(r *rankIndex) {
	s.rank = r
}

// select1 returns the position of the k-th (0-indexed) set bit, or -1
// if the vector has fewer than k+1 set bits.
func (s *selectIndex) select1(k int) int {
	r := s.rank
	blockRank := r.blockRank

	// Find the last block whose cumulative rank is <= k.
	block := sort.Search(len(blockRank), func(i int) bool {
		return int(blockRank[i]) > k
	}) - 1
	if block < 0 {
		block = 0
	}

	words := *r.words
	remaining := k - int(blockRank[block])
	wordStart := block * wordsPerBlock
	wordEnd := wordStart + wordsPerBlock
	if wordEnd > len(words) {
		wordEnd = len(words)
	}

	for w := wordStart; w < wordEnd; w++ {
		c := bits.OnesCount64(words[w])
		if remaining < c {
			return w*64 + selectInWord(words[w], remaining)
		}
		remaining -= c
	}
	return -1
}

// selectInWord returns the position, within word, of the k-th (0-indexed)
// set bit. Callers guarantee word has more than k set bits.
func selectInWord(word uint64, k int) int {
	for {
		tz := bits.TrailingZeros64(word)
		if k == 0 {
			return tz
		}
		word &= word - 1 // clear lowest set bit
		k--
	}
}

func (s *selectIndex) writeTo(w io.Writer) (int64, error) {
	// selectIndex carries no state beyond the rankIndex it derives from;
	// nothing to serialise besides the presence flag BitVector already
	// writes.
	return 0, nil
}

func (s *selectIndex) readFrom(r io.Reader) (int64, error) {
	return 0, nil
}
