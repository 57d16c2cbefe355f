// Package hash implements the hash-table index: an open-addressed table
// mapping each unique sketch to its id group, queried by enumerating
// every within-radius signature via internal/sigiter.
package hash

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/sketchindex"
	"github.com/hupe1980/sketchindex/internal/entryset"
	"github.com/hupe1980/sketchindex/internal/hash"
	"github.com/hupe1980/sketchindex/internal/packed"
	"github.com/hupe1980/sketchindex/internal/sigiter"
)

const emptySlot = ^uint32(0)

// slot is one table cell: keyPos indexes into the Index's key store
// (emptySlot means unoccupied); idBeg/idEnd slice the id store.
type slot struct {
	keyPos       uint32
	idBeg, idEnd uint32
}

// Index is the built, read-only hash-table index.
type Index struct {
	cfg sketchindex.Config

	slots []slot
	keys  []byte // E*m bytes, keys[i*m:(i+1)*m] is the key at key-position i
	ids   *packed.Array

	numKeys int

	logger *sketchindex.Logger
	mc     sketchindex.MetricsCollector
}

// Build constructs a hash-table index over set, sized to
// ceil(1.5*len(set.Entries)) slots.
func Build(set *entryset.Set, cfg sketchindex.Config, opts ...sketchindex.Option) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, mc, _ := sketchindex.ApplyOptions(opts)

	e := len(set.Entries)
	tableSize := (3*e + 1) / 2
	if tableSize < 1 {
		tableSize = 1
	}

	idWidth := packed.BitsForRange(set.N())
	for _, id := range set.IDs {
		for idWidth < 64 && id>>idWidth != 0 {
			idWidth++
		}
	}

	idx := &Index{
		cfg:     cfg,
		slots:   make([]slot, tableSize),
		keys:    make([]byte, e*cfg.Dim),
		ids:     packed.NewArray(idWidth, set.N()),
		numKeys: e,
		logger:  logger,
		mc:      mc,
	}
	for i := range idx.slots {
		idx.slots[i].keyPos = emptySlot
	}
	for _, id := range set.IDs {
		idx.ids.Append(id)
	}

	ranges := set.IDRanges()
	for i, entry := range set.Entries {
		copy(idx.keys[i*cfg.Dim:(i+1)*cfg.Dim], entry.Key)

		pos, err := idx.insert(entry.Key, uint32(i))
		if err != nil {
			mc.RecordBuild("hash", e, err)
			return nil, err
		}
		idx.slots[pos].idBeg = uint32(ranges[i][0])
		idx.slots[pos].idEnd = uint32(ranges[i][1])
	}

	logger.LogBuild(nil, "hash", e, set.N(), nil)
	mc.RecordBuild("hash", e, nil)
	return idx, nil
}

// insert finds the slot for key via FNV-1a + linear probing, marking it
// occupied with keyPos, and returns the slot index.
func (idx *Index) insert(key []byte, keyPos uint32) (int, error) {
	tableSize := len(idx.slots)
	start := int(hash.FNV1a64(key) % uint64(tableSize))

	for i := 0; i < tableSize; i++ {
		pos := (start + i) % tableSize
		if idx.slots[pos].keyPos == emptySlot {
			idx.slots[pos].keyPos = keyPos
			return pos, nil
		}
	}
	return 0, sketchindex.NewInvariantError("hash table probing exceeded capacity")
}

// find performs the same FNV-1a + linear-probe walk at query time,
// returning the matched key-position or (0, false) on a miss (an empty
// slot reached before an equal key).
func (idx *Index) find(key []byte) (int, bool) {
	tableSize := len(idx.slots)
	start := int(hash.FNV1a64(key) % uint64(tableSize))

	for i := 0; i < tableSize; i++ {
		pos := (start + i) % tableSize
		s := idx.slots[pos]
		if s.keyPos == emptySlot {
			return 0, false
		}
		if keyEqual(idx.keys[int(s.keyPos)*idx.cfg.Dim:(int(s.keyPos)+1)*idx.cfg.Dim], key) {
			return pos, true
		}
	}
	return 0, false
}

func keyEqual(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NumKeys returns the number of distinct entries in the index.
func (idx *Index) NumKeys() int { return idx.numKeys }

// Config returns the index's configuration.
func (idx *Index) Config() sketchindex.Config { return idx.cfg }

// NewSearcher returns a fresh per-query scratch Searcher over idx.
func (idx *Index) NewSearcher() *Searcher {
	return &Searcher{
		idx: idx,
		gen: sigiter.NewGenerator(idx.cfg.Dim),
	}
}

// WriteTo serialises the index: config, slots, keys, ids.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	var n int64
	if wn, err := idx.cfg.WriteTo(w); err != nil {
		return n + wn, err
	} else {
		n += wn
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(idx.slots))); err != nil {
		return n, err
	}
	n += 8
	for _, s := range idx.slots {
		// written field-by-field (not as a struct) since encoding/binary's
		// Read side needs reflect.Set, which panics on unexported fields.
		vals := [3]uint32{s.keyPos, s.idBeg, s.idEnd}
		if err := binary.Write(w, binary.LittleEndian, vals); err != nil {
			return n, err
		}
		n += 12
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(idx.keys))); err != nil {
		return n, err
	}
	n += 8
	if len(idx.keys) > 0 {
		wn, err := w.Write(idx.keys)
		n += int64(wn)
		if err != nil {
			return n, err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(idx.numKeys)); err != nil {
		return n, err
	}
	n += 8

	wn, err := idx.ids.WriteTo(w)
	n += wn
	return n, err
}

// Load deserialises an index written by WriteTo.
func Load(r io.Reader, opts ...sketchindex.Option) (*Index, error) {
	logger, mc, _ := sketchindex.ApplyOptions(opts)

	var cfg sketchindex.Config
	if _, err := cfg.ReadFrom(r); err != nil {
		return nil, sketchindex.NewIoError("hash.Load: read config", err)
	}

	var numSlots uint64
	if err := binary.Read(r, binary.LittleEndian, &numSlots); err != nil {
		return nil, sketchindex.NewIoError("hash.Load: read slot count", err)
	}
	slots := make([]slot, numSlots)
	for i := range slots {
		var vals [3]uint32
		if err := binary.Read(r, binary.LittleEndian, &vals); err != nil {
			return nil, sketchindex.NewIoError(fmt.Sprintf("hash.Load: read slot %d", i), err)
		}
		slots[i] = slot{keyPos: vals[0], idBeg: vals[1], idEnd: vals[2]}
	}

	var numKeyBytes uint64
	if err := binary.Read(r, binary.LittleEndian, &numKeyBytes); err != nil {
		return nil, sketchindex.NewIoError("hash.Load: read key length", err)
	}
	keys := make([]byte, numKeyBytes)
	if numKeyBytes > 0 {
		if _, err := io.ReadFull(r, keys); err != nil {
			return nil, sketchindex.NewIoError("hash.Load: read keys", err)
		}
	}

	var numKeys uint64
	if err := binary.Read(r, binary.LittleEndian, &numKeys); err != nil {
		return nil, sketchindex.NewIoError("hash.Load: read numKeys", err)
	}

	ids := &packed.Array{}
	if _, err := ids.ReadFrom(r); err != nil {
		return nil, sketchindex.NewIoError("hash.Load: read ids", err)
	}

	idx := &Index{
		cfg:     cfg,
		slots:   slots,
		keys:    keys,
		ids:     ids,
		numKeys: int(numKeys),
		logger:  logger,
		mc:      mc,
	}
	logger.LogDeserialize(nil, "hash", idx.numKeys, nil)
	return idx, nil
}
