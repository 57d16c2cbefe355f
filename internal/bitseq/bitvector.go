// Package bitseq implements a succinct bit sequence: a read-only bit
// array with optional rank1 and select1 support, using segmented-word
// storage and WriteTo/ReadFrom conventions, generalised with an
// explicit rank/select index layered on top of the plain word array.
//
// A BitVector is built once (from a packed word array or a bool
// sequence), optionally has EnableRank/EnableSelect called on it, and
// is read-only from that point on. Per the "cyclic/back references"
// design note, the rank and select auxiliaries hold a back-reference to
// the payload word slice; the unexported rebind re-points them after
// ReadFrom replaces that slice (ReadFrom calls it itself).
package bitseq

import (
	"encoding/binary"
	"io"
	"math/bits"
)

const blockBits = 512 // rank superblock size, in bits (8 uint64 words)
const wordsPerBlock = blockBits / 64

// BitVector is a fixed-length, read-only-after-build bit array with
// optional rank1/select1 acceleration.
type BitVector struct {
	words []uint64
	n     int // length in bits

	rank *rankIndex
	sel  *selectIndex
}

// New creates a zero-filled BitVector of n bits.
func New(n int) *BitVector {
	return &BitVector{words: make([]uint64, wordCount(n)), n: n}
}

// FromBools builds a BitVector from a boolean sequence.
func FromBools(bs []bool) *BitVector {
	v := New(len(bs))
	for i, b := range bs {
		if b {
			v.Set(i)
		}
	}
	return v
}

// FromWords builds a BitVector directly from a packed word array and an
// explicit bit length (n <= 64*len(words)).
func FromWords(words []uint64, n int) *BitVector {
	return &BitVector{words: words, n: n}
}

func wordCount(n int) int {
	return (n + 63) / 64
}

// Len returns the number of bits in the vector.
func (v *BitVector) Len() int { return v.n }

// Set sets bit i to 1.
func (v *BitVector) Set(i int) {
	v.words[i>>6] |= 1 << uint(i&63)
}

// Get returns bit i.
func (v *BitVector) Get(i int) bool {
	return v.words[i>>6]&(1<<uint(i&63)) != 0
}

// Count returns the total number of set bits.
func (v *BitVector) Count() int {
	c := 0
	for _, w := range v.words {
		c += bits.OnesCount64(w)
	}
	return c
}

// EnableRank builds (or rebuilds) the rank1 index over the current
// payload. Must be called after all Set calls and before any Rank1
// call.
func (v *BitVector) EnableRank() {
	v.rank = newRankIndex(v.words, v.n)
}

// EnableSelect builds (or rebuilds) the select1 index. EnableRank is
// called first if not already enabled, since select1 uses the rank
// index to locate the containing block.
func (v *BitVector) EnableSelect() {
	if v.rank == nil {
		v.EnableRank()
	}
	v.sel = newSelectIndex(v.rank)
}

// Rank1 returns the number of 1-bits in [0, i). Requires EnableRank.
func (v *BitVector) Rank1(i int) int {
	return v.rank.rank1(i)
}

// Select1 returns the position of the k-th (0-indexed) 1-bit. Requires
// EnableSelect. Returns -1 if k is out of range.
func (v *BitVector) Select1(k int) int {
	return v.sel.select1(k)
}

// rebind repoints the rank/select auxiliaries at v's current payload
// slice. This must run after any operation (such as ReadFrom) that
// installs a new backing word slice into v.
func (v *BitVector) rebind() {
	if v.rank != nil {
		v.rank.rebind(v.words, v.n)
	}
	if v.sel != nil {
		v.sel.rebind(v.rank)
	}
}

// WriteTo serialises the bit array followed by the rank/select
// auxiliaries (if present), each tagged with a presence flag so
// ReadFrom can reconstruct exactly what was built.
func (v *BitVector) WriteTo(w io.Writer) (int64, error) {
	var n int64
	if err := binary.Write(w, binary.LittleEndian, uint64(v.n)); err != nil {
		return n, err
	}
	n += 8
	if err := binary.Write(w, binary.LittleEndian, uint64(len(v.words))); err != nil {
		return n, err
	}
	n += 8
	if len(v.words) > 0 {
		if err := binary.Write(w, binary.LittleEndian, v.words); err != nil {
			return n, err
		}
		n += int64(len(v.words)) * 8
	}

	hasRank := v.rank != nil
	if err := binary.Write(w, binary.LittleEndian, hasRank); err != nil {
		return n, err
	}
	n++
	if hasRank {
		wn, err := v.rank.writeTo(w)
		n += wn
		if err != nil {
			return n, err
		}
	}

	hasSel := v.sel != nil
	if err := binary.Write(w, binary.LittleEndian, hasSel); err != nil {
		return n, err
	}
	n++
	if hasSel {
		wn, err := v.sel.writeTo(w)
		n += wn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadFrom deserialises a BitVector written by WriteTo, rebinding any
// rank/select auxiliaries to the freshly loaded payload.
func (v *BitVector) ReadFrom(r io.Reader) (int64, error) {
	var n int64

	var nBits, nWords uint64
	if err := binary.Read(r, binary.LittleEndian, &nBits); err != nil {
		return n, err
	}
	n += 8
	if err := binary.Read(r, binary.LittleEndian, &nWords); err != nil {
		return n, err
	}
	n += 8

	v.n = int(nBits)
	v.words = make([]uint64, nWords)
	if nWords > 0 {
		if err := binary.Read(r, binary.LittleEndian, v.words); err != nil {
			return n, err
		}
		n += int64(nWords) * 8
	}

	var hasRank bool
	if err := binary.Read(r, binary.LittleEndian, &hasRank); err != nil {
		return n, err
	}
	n++
	v.rank = nil
	if hasRank {
		v.rank = &rankIndex{}
		rn, err := v.rank.readFrom(r)
		n += rn
		if err != nil {
			return n, err
		}
	}

	var hasSel bool
	if err := binary.Read(r, binary.LittleEndian, &hasSel); err != nil {
		return n, err
	}
	n++
	v.sel = nil
	if hasSel {
		v.sel = &selectIndex{}
		sn, err := v.sel.readFrom(r)
		n += sn
		if err != nil {
			return n, err
		}
	}

	v.rebind()
	return n, nil
}
