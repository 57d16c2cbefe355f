// Package entryset builds the unique-key entry list shared by every
// index: given N raw sketches, group equal keys (after masking) and
// emit one Entry per distinct key, sorted lexicographically, together
// with the node_begs auxiliary table used by the trie builder.
package entryset

import (
	"bytes"
	"sort"
)

// Entry is a distinct sketch value with the ids of every input row that
// carried it, in original input order.
type Entry struct {
	Key []byte
	IDs []uint64
}

// Set is the sorted, deduplicated view over a raw sketch corpus: Entries
// sorted lexicographically by Key, and the concatenated IDs of all
// entries in that same order (so IDBeg(i) and IDBeg(i+1) slice directly
// into IDs).
type Set struct {
	Entries []Entry
	// IDs is every entry's IDs concatenated in entry order; entry i owns
	// IDs[IDBeg(i):IDBeg(i)+len(Entries[i].IDs)].
	IDs []uint64
}

// Build groups sketches (dim m bytes each, already masked by the
// caller) into a sorted, deduplicated Set. ids[i] is the external id of
// sketches[i*m:(i+1)*m]; if ids is nil, row index is used as the id.
func Build(sketches []byte, m int, ids []uint64) *Set {
	n := len(sketches) / m
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rowKey := func(i int) []byte { return sketches[i*m : (i+1)*m] }

	sort.SliceStable(order, func(a, b int) bool {
		return bytes.Compare(rowKey(order[a]), rowKey(order[b])) < 0
	})

	set := &Set{IDs: make([]uint64, 0, n)}
	for _, rowIdx := range order {
		key := rowKey(rowIdx)
		id := uint64(rowIdx)
		if ids != nil {
			id = ids[rowIdx]
		}

		if len(set.Entries) > 0 && bytes.Equal(set.Entries[len(set.Entries)-1].Key, key) {
			last := &set.Entries[len(set.Entries)-1]
			last.IDs = append(last.IDs, id)
			set.IDs = append(set.IDs, id)
			continue
		}

		set.Entries = append(set.Entries, Entry{Key: append([]byte(nil), key...), IDs: []uint64{id}})
		set.IDs = append(set.IDs, id)
	}
	return set
}

// IDBeg returns the offset into Set.IDs where entry i's id group begins.
func (s *Set) IDBeg(i int) int {
	beg := 0
	for j := 0; j < i; j++ {
		beg += len(s.Entries[j].IDs)
	}
	return beg
}

// IDRanges returns the [beg, end) id range for every entry in one pass,
// cheaper than repeated IDBeg calls.
func (s *Set) IDRanges() [][2]int {
	ranges := make([][2]int, len(s.Entries))
	beg := 0
	for i, e := range s.Entries {
		end := beg + len(e.IDs)
		ranges[i] = [2]int{beg, end}
		beg = end
	}
	return ranges
}

// N returns the total number of input rows represented (sum of all
// entries' id-group sizes).
func (s *Set) N() int {
	return len(s.IDs)
}

// NodeBegs computes, for depth h in [0, m], the sorted sequence of
// entry indices at which a distinct prefix of length h begins, ending
// with len(Entries). node_begs[0] is always [0, len(Entries)].
func NodeBegs(entries []Entry, m int) [][]int {
	table := make([][]int, m+1)
	table[0] = []int{0, len(entries)}

	for h := 1; h <= m; h++ {
		var begs []int
		for i, e := range entries {
			if i == 0 || !bytes.Equal(e.Key[:h], entries[i-1].Key[:h]) {
				begs = append(begs, i)
			}
		}
		begs = append(begs, len(entries))
		table[h] = begs
	}
	return table
}
