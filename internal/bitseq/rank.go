package bitseq

import (
	"encoding/binary"
	"io"
	"math/bits"
)

// rankIndex accelerates Rank1 with a cumulative popcount sampled every
// wordsPerBlock words. It holds a back-reference to the owning
// BitVector's word slice rather than a copy, per the cyclic/back
// reference design note: the index is meaningless without the payload
// it was built over, and must be rebound whenever that payload is
// replaced (e.g. after deserialisation).
type rankIndex struct {
	words *[]uint64 // back-reference to the owning BitVector's payload
	n     int

	// blockRank[i] is the number of set bits in words[0:i*wordsPerBlock].
	blockRank []uint32
}

func newRankIndex(words []uint64, n int) *rankIndex {
	r := &rankIndex{}
	r.build(words, n)
	return r
}

func (r *rankIndex) build(words []uint64, n int) {
	// nBlocks covers one block per wordsPerBlock words, plus one extra
	// so a query landing exactly on the block boundary past the last
	// real block (i == n, n a multiple of blockBits) still resolves to
	// a valid, fully-populated entry equal to the grand total.
	nBlocks := len(words)/wordsPerBlock + 1
	blockRank := make([]uint32, nBlocks)
	var running uint32
	nextBlock := 0
	for i, w := range words {
		if i%wordsPerBlock == 0 {
			blockRank[nextBlock] = running
			nextBlock++
		}
		running += uint32(bits.OnesCount64(w))
	}
	for ; nextBlock < nBlocks; nextBlock++ {
		blockRank[nextBlock] = running
	}
	r.words = &words
	r.n = n
	r.blockRank = blockRank
}

// rebind repoints the index at a (possibly new) words slice without
// recomputing blockRank, which is only valid when the payload's bits
// are unchanged — exactly the case after a ReadFrom, where the freshly
// loaded words are byte-identical to those the index was built over.
func (r *rankIndex) rebind(words []uint64, n int) {
	r.words = &words
	r.n = n
}

// rank1 returns the number of set bits in [0, i).
func (r *rankIndex) rank1(i int) int {
	words := *r.words
	block := i / 64 / wordsPerBlock
	total := int(r.blockRank[block])

	wordStart := block * wordsPerBlock
	wordEnd := i / 64
	for w := wordStart; w < wordEnd; w++ {
		total += bits.OnesCount64(words[w])
	}

	if rem := i % 64; rem > 0 {
		tailMask := uint64(1)<<uint(rem) - 1
		total += bits.OnesCount64(words[wordEnd] & tailMask)
	}
	return total
}

func (r *rankIndex) writeTo(w io.Writer) (int64, error) {
	var n int64
	if err := binary.Write(w, binary.LittleEndian, uint64(len(r.blockRank))); err != nil {
		return n, err
	}
	n += 8
	if len(r.blockRank) > 0 {
		if err := binary.Write(w, binary.LittleEndian, r.blockRank); err != nil {
			return n, err
		}
		n += int64(len(r.blockRank)) * 4
	}
	return n, nil
}

func (r *rankIndex) readFrom(rd io.Reader) (int64, error) {
	var n int64
	var count uint64
	if err := binary.Read(rd, binary.LittleEndian, &count); err != nil {
		return n, err
	}
	n += 8
	r.blockRank = make([]uint32, count)
	if count > 0 {
		if err := binary.Read(rd, binary.LittleEndian, r.blockRank); err != nil {
			return n, err
		}
		n += int64(count) * 4
	}
	// words/n are filled in by BitVector.rebind after all sections load.
	return n, nil
}
