// Package packed implements a fixed-bit-width integer array: N values,
// each in [0, 2^width), packed contiguously into uint64 words with no
// padding between values. Used for the hash and trie indexes' id stores
// and the trie's list_chars array (the hash index keeps its key store as
// plain bytes, one per symbol), matching the persistence contract's
// "(length, bit-width, payload)" array format.
package packed

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/sketchindex/internal/conv"
)

// Array is a read/append fixed-width packed integer array.
type Array struct {
	width uint // bits per value, 1..64
	n     int  // number of values currently stored
	words []uint64
}

// NewArray creates an Array with the given bit width and a capacity
// hint for n values.
func NewArray(width uint, capacityHint int) *Array {
	return &Array{
		width: width,
		words: make([]uint64, 0, wordsFor(capacityHint, width)),
	}
}

func wordsFor(n int, width uint) int {
	bits := uint64(n) * uint64(width)
	return int((bits + 63) / 64)
}

// Width returns the per-value bit width.
func (a *Array) Width() uint { return a.width }

// Len returns the number of stored values.
func (a *Array) Len() int { return a.n }

// Append adds v (truncated to the configured width) to the end of the
// array.
func (a *Array) Append(v uint64) {
	if a.width < 64 {
		v &= (uint64(1) << a.width) - 1
	}
	bitPos := uint64(a.n) * uint64(a.width)
	wordIdx := bitPos / 64
	bitOff := bitPos % 64

	for uint64(len(a.words)) <= wordIdx+1 {
		a.words = append(a.words, 0)
	}

	a.words[wordIdx] |= v << bitOff
	if spill := bitOff + uint64(a.width); spill > 64 {
		a.words[wordIdx+1] |= v >> (64 - bitOff)
	}
	a.n++
}

// Get returns the i-th stored value.
func (a *Array) Get(i int) uint64 {
	bitPos := uint64(i) * uint64(a.width)
	wordIdx := bitPos / 64
	bitOff := bitPos % 64

	v := a.words[wordIdx] >> bitOff
	if spill := bitOff + uint64(a.width); spill > 64 && int(wordIdx)+1 < len(a.words) {
		v |= a.words[wordIdx+1] << (64 - bitOff)
	}
	if a.width < 64 {
		v &= (uint64(1) << a.width) - 1
	}
	return v
}

// WriteTo serialises (length, bit-width, payload words).
func (a *Array) WriteTo(w io.Writer) (int64, error) {
	var written int64
	if err := binary.Write(w, binary.LittleEndian, uint64(a.n)); err != nil {
		return written, err
	}
	written += 8
	if err := binary.Write(w, binary.LittleEndian, uint64(a.width)); err != nil {
		return written, err
	}
	written += 8
	if err := binary.Write(w, binary.LittleEndian, uint64(len(a.words))); err != nil {
		return written, err
	}
	written += 8
	if len(a.words) > 0 {
		if err := binary.Write(w, binary.LittleEndian, a.words); err != nil {
			return written, err
		}
		written += int64(len(a.words)) * 8
	}
	return written, nil
}

// ReadFrom deserialises an Array written by WriteTo.
func (a *Array) ReadFrom(r io.Reader) (int64, error) {
	var read int64
	var n, width, nWords uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return read, err
	}
	read += 8
	if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
		return read, err
	}
	read += 8
	if err := binary.Read(r, binary.LittleEndian, &nWords); err != nil {
		return read, err
	}
	read += 8

	an, err := conv.Uint64ToInt(n)
	if err != nil {
		return read, fmt.Errorf("packed: reading array length: %w", err)
	}
	nw, err := conv.Uint64ToInt(nWords)
	if err != nil {
		return read, fmt.Errorf("packed: reading word count: %w", err)
	}

	a.n = an
	a.width = uint(width)
	a.words = make([]uint64, nw)
	if nWords > 0 {
		if err := binary.Read(r, binary.LittleEndian, a.words); err != nil {
			return read, err
		}
		read += int64(nWords) * 8
	}
	return read, nil
}

// BitsForRange returns ceil(log2(n+1)), the minimum bit width able to
// represent every value in [0, n].
func BitsForRange(n int) uint {
	if n <= 0 {
		return 1
	}
	w := uint(0)
	for v := uint64(n); v > 0; v >>= 1 {
		w++
	}
	return w
}
