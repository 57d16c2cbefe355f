// Package trie implements the three-layer succinct trie index: an
// implicit perfect-prefix descent, a hybrid dense/sparse medium layer,
// and a vertical-bitcoded suffix layer, per the sketch trie design.
package trie

import (
	"encoding/binary"
	"io"

	"github.com/hupe1980/sketchindex"
	"github.com/hupe1980/sketchindex/internal/bitseq"
	"github.com/hupe1980/sketchindex/internal/entryset"
	"github.com/hupe1980/sketchindex/internal/packed"
	"github.com/hupe1980/sketchindex/internal/vbits"
)

// repKind is the per-level representation chosen by the medium layer.
type repKind uint8

const (
	repDHT repKind = iota
	repLIST
)

// levelAux locates one medium-layer depth within its backing array, and
// carries the rank/select offset correction (prefix_sum) contributed by
// earlier same-kind levels.
type levelAux struct {
	kind        repKind
	regionBegin int
	prefixSum   int
}

// Index is the built, read-only succinct trie index.
type Index struct {
	cfg sketchindex.Config

	hp int // perfect-prefix depth
	hm int // medium-layer end depth == suffix-layer start depth
	ms int // suffix dimension, cfg.Dim - hm

	levels []levelAux // one per depth in [hp, hm)

	dhts      *bitseq.BitVector // concatenated DHT child bitmaps, rank1 enabled
	listBits  *bitseq.BitVector // concatenated LIST child-run markers, select1 enabled
	listChars *packed.Array     // one symbol per listBits position (one per LIST child plus sentinel)

	leafBegs *bitseq.BitVector // length E+1, select1-indexed: leaf r's entries are [select1(r), select1(r+1))
	idBegs   *bitseq.BitVector // length N+1, select1-indexed: entry r's ids are [select1(r), select1(r+1))
	ids      *packed.Array     // N concatenated ids, in entry order, sliced via idBegs
	sufCodes []vbits.Code      // one per entry, vertical code of the entry's suffix (ms symbols)

	numKeys int
	numIDs  int

	logger *sketchindex.Logger
	mc     sketchindex.MetricsCollector
}

// Build constructs a succinct trie index over set.
func Build(set *entryset.Set, cfg sketchindex.Config, opts ...sketchindex.Option) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, mc, _ := sketchindex.ApplyOptions(opts)

	entries := set.Entries
	for i := 1; i < len(entries); i++ {
		if string(entries[i-1].Key) >= string(entries[i].Key) {
			err := sketchindex.NewInvariantError("trie build saw non-lexicographic entry order")
			mc.RecordBuild("trie", len(entries), err)
			return nil, err
		}
	}

	b := newBuilder(set, cfg)
	idx := b.build()
	idx.logger = logger
	idx.mc = mc

	logger.LogBuild(nil, "trie", idx.numKeys, set.N(), nil)
	mc.RecordBuild("trie", idx.numKeys, nil)
	return idx, nil
}

type builder struct {
	set      *entryset.Set
	entries  []entryset.Entry
	cfg      sketchindex.Config
	nodeBegs [][]int
}

func newBuilder(set *entryset.Set, cfg sketchindex.Config) *builder {
	return &builder{
		set:      set,
		entries:  set.Entries,
		cfg:      cfg,
		nodeBegs: entryset.NodeBegs(set.Entries, cfg.Dim),
	}
}

func (b *builder) nodes(h int) int { return len(b.nodeBegs[h]) - 1 }

func (b *builder) build() *Index {
	cfg := b.cfg
	idx := &Index{cfg: cfg, numKeys: len(b.entries)}

	idx.hp = b.perfectPrefixDepth()
	idx.hm = b.mediumLayerEnd(idx.hp)
	idx.ms = cfg.Dim - idx.hm

	idx.levels, idx.dhts, idx.listBits, idx.listChars = b.buildMediumLevels(idx.hp, idx.hm)

	idx.leafBegs = b.buildLeafBegs(idx.hm)
	idx.idBegs, idx.numIDs = b.buildIDBegs()
	idx.ids = b.buildIDs()
	idx.sufCodes = b.buildSuffixCodes(idx.hm, idx.ms)

	return idx
}

func (b *builder) buildIDs() *packed.Array {
	width := packed.BitsForRange(b.set.N())
	for _, id := range b.set.IDs {
		for width < 64 && id>>width != 0 {
			width++
		}
	}
	arr := packed.NewArray(width, b.set.N())
	for _, id := range b.set.IDs {
		arr.Append(id)
	}
	return arr
}

func (b *builder) perfectPrefixDepth() int {
	m := b.cfg.Dim
	sigma := b.cfg.Sigma()
	for h := 0; h < m; h++ {
		if b.nodes(h+1) != b.nodes(h)*sigma {
			return h
		}
	}
	return m
}

func (b *builder) mediumLayerEnd(hp int) int {
	m := b.cfg.Dim
	e := len(b.entries)
	for h := hp; h < m; h++ {
		if float64(b.nodes(h+1))*b.cfg.SufThr > float64(e) {
			return h
		}
	}
	return m
}

// childBoundaries returns, for node nodeIdx at depth h, the sorted
// subset of nodeBegs[h+1] delimiting its children (lexicographic order
// of child symbols follows directly from sorted entry order).
func (b *builder) childBoundaries(h, nodeIdx int) []int {
	lo, hi := b.nodeBegs[h][nodeIdx], b.nodeBegs[h][nodeIdx+1]
	var bounds []int
	for _, p := range b.nodeBegs[h+1] {
		if p >= lo && p <= hi {
			bounds = append(bounds, p)
		}
	}
	return bounds
}

func (b *builder) buildMediumLevels(hp, hm int) ([]levelAux, *bitseq.BitVector, *bitseq.BitVector, *packed.Array) {
	sigma := b.cfg.Sigma()
	tau := float64(sigma) / float64(b.cfg.Bits+1)

	var levels []levelAux
	dhtTotal, listTotal := 0, 0
	kinds := make([]repKind, 0, hm-hp)

	for h := hp; h < hm; h++ {
		phi := float64(b.nodes(h+1)) / float64(b.nodes(h))
		var kind repKind
		switch b.cfg.RepType {
		case sketchindex.RepDHT:
			kind = repDHT
		case sketchindex.RepList:
			kind = repLIST
		default: // RepHybrid
			if phi >= tau {
				kind = repDHT
			} else {
				kind = repLIST
			}
		}
		kinds = append(kinds, kind)
		if kind == repDHT {
			dhtTotal += b.nodes(h) * sigma
		} else {
			listTotal += b.nodes(h + 1)
		}
	}
	if listTotal > 0 {
		listTotal++ // sentinel (1, '\0') pad
	}

	dhts := bitseq.New(dhtTotal)
	listBits := bitseq.New(listTotal)
	listChars := packed.NewArray(uint(b.cfg.Bits), listTotal)

	dhtPos, listPos := 0, 0
	dhtPrefix, listPrefix := 0, 0

	for i, h := 0, hp; h < hm; i, h = i+1, h+1 {
		kind := kinds[i]
		if kind == repDHT {
			regionBegin := dhtPos
			for node := 0; node < b.nodes(h); node++ {
				base := regionBegin + node*sigma
				for _, p := range b.childBoundaries(h, node) {
					if p == b.nodeBegs[h][node+1] {
						continue
					}
					sym := int(b.entries[p].Key[h])
					dhts.Set(base + sym)
				}
			}
			dhtPos += b.nodes(h) * sigma
			levels = append(levels, levelAux{kind: repDHT, regionBegin: regionBegin, prefixSum: dhtPrefix})
			dhtPrefix += b.nodes(h + 1)
			continue
		}

		regionBegin := listPos
		for node := 0; node < b.nodes(h); node++ {
			bounds := b.childBoundaries(h, node)
			first := true
			for _, p := range bounds {
				if p == b.nodeBegs[h][node+1] {
					continue
				}
				if first {
					listBits.Set(listPos)
					first = false
				}
				listChars.Append(uint64(b.entries[p].Key[h]))
				listPos++
			}
		}
		levels = append(levels, levelAux{kind: repLIST, regionBegin: regionBegin, prefixSum: listPrefix})
		listPrefix += b.nodes(h)
	}

	if listTotal > 0 {
		listBits.Set(listPos) // sentinel marker
		listChars.Append(0)
	}

	dhts.EnableRank()
	listBits.EnableSelect()

	return levels, dhts, listBits, listChars
}

func (b *builder) buildLeafBegs(hm int) *bitseq.BitVector {
	begs := b.nodeBegs[hm]
	v := bitseq.New(len(b.entries) + 1)
	for _, p := range begs {
		v.Set(p)
	}
	v.EnableSelect()
	return v
}

func (b *builder) buildIDBegs() (*bitseq.BitVector, int) {
	n := 0
	for _, e := range b.entries {
		n += len(e.IDs)
	}
	v := bitseq.New(n + 1)
	pos := 0
	for _, e := range b.entries {
		v.Set(pos)
		pos += len(e.IDs)
	}
	v.Set(n)
	v.EnableSelect()
	return v, n
}

func (b *builder) buildSuffixCodes(hm, ms int) []vbits.Code {
	codes := make([]vbits.Code, len(b.entries))
	for i, e := range b.entries {
		codes[i] = vbits.Encode(e.Key[hm:], ms, b.cfg.Bits)
	}
	return codes
}

// NumKeys returns the number of distinct entries in the index.
func (idx *Index) NumKeys() int { return idx.numKeys }

// Config returns the index's configuration.
func (idx *Index) Config() sketchindex.Config { return idx.cfg }

// NewSearcher returns a fresh per-query scratch Searcher over idx.
func (idx *Index) NewSearcher() *Searcher {
	return &Searcher{idx: idx}
}

// WriteTo serialises the index: config and every backing structure.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	var n int64
	add := func(wn int64, err error) error {
		n += wn
		return err
	}

	if err := add(idx.cfg.WriteTo(w)); err != nil {
		return n, err
	}
	if err := add(writeInts(w, idx.hp, idx.hm, idx.ms, idx.numKeys, idx.numIDs)); err != nil {
		return n, err
	}

	if err := add(writeLevels(w, idx.levels)); err != nil {
		return n, err
	}
	if err := add(idx.dhts.WriteTo(w)); err != nil {
		return n, err
	}
	if err := add(idx.listBits.WriteTo(w)); err != nil {
		return n, err
	}
	if err := add(idx.listChars.WriteTo(w)); err != nil {
		return n, err
	}
	if err := add(idx.leafBegs.WriteTo(w)); err != nil {
		return n, err
	}
	if err := add(idx.idBegs.WriteTo(w)); err != nil {
		return n, err
	}
	if err := add(idx.ids.WriteTo(w)); err != nil {
		return n, err
	}
	if err := add(writeSuffixCodes(w, idx.sufCodes)); err != nil {
		return n, err
	}
	return n, nil
}

func writeInts(w io.Writer, vals ...int) (int64, error) {
	buf := make([]uint64, len(vals))
	for i, v := range vals {
		buf[i] = uint64(v)
	}
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		return 0, err
	}
	return int64(len(buf)) * 8, nil
}

func readInts(r io.Reader, n int) ([]int, error) {
	buf := make([]uint64, n)
	if err := binary.Read(r, binary.LittleEndian, &buf); err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i, v := range buf {
		out[i] = int(v)
	}
	return out, nil
}

func writeLevels(w io.Writer, levels []levelAux) (int64, error) {
	var n int64
	if err := binary.Write(w, binary.LittleEndian, uint64(len(levels))); err != nil {
		return n, err
	}
	n += 8
	for _, l := range levels {
		vals := [3]uint64{uint64(l.kind), uint64(l.regionBegin), uint64(l.prefixSum)}
		if err := binary.Write(w, binary.LittleEndian, vals); err != nil {
			return n, err
		}
		n += 24
	}
	return n, nil
}

func readLevels(r io.Reader) ([]levelAux, int64, error) {
	var n int64
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, n, err
	}
	n += 8
	levels := make([]levelAux, count)
	for i := range levels {
		var vals [3]uint64
		if err := binary.Read(r, binary.LittleEndian, &vals); err != nil {
			return nil, n, err
		}
		n += 24
		levels[i] = levelAux{kind: repKind(vals[0]), regionBegin: int(vals[1]), prefixSum: int(vals[2])}
	}
	return levels, n, nil
}

func writeSuffixCodes(w io.Writer, codes []vbits.Code) (int64, error) {
	var n int64
	if err := binary.Write(w, binary.LittleEndian, uint64(len(codes))); err != nil {
		return n, err
	}
	n += 8
	width := 0
	if len(codes) > 0 {
		width = len(codes[0])
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(width)); err != nil {
		return n, err
	}
	n += 8
	for _, c := range codes {
		if len(c) == 0 {
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, []uint64(c)); err != nil {
			return n, err
		}
		n += int64(len(c)) * 8
	}
	return n, nil
}

func readSuffixCodes(r io.Reader) ([]vbits.Code, int64, error) {
	var n int64
	var count, width uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, n, err
	}
	n += 8
	if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
		return nil, n, err
	}
	n += 8

	codes := make([]vbits.Code, count)
	for i := range codes {
		code := make(vbits.Code, width)
		if width > 0 {
			if err := binary.Read(r, binary.LittleEndian, []uint64(code)); err != nil {
				return nil, n, err
			}
			n += int64(width) * 8
		}
		codes[i] = code
	}
	return codes, n, nil
}

// Load deserialises an index written by WriteTo.
func Load(r io.Reader, opts ...sketchindex.Option) (*Index, error) {
	logger, mc, _ := sketchindex.ApplyOptions(opts)

	var cfg sketchindex.Config
	if _, err := cfg.ReadFrom(r); err != nil {
		return nil, sketchindex.NewIoError("trie.Load: read config", err)
	}

	ints, err := readInts(r, 5)
	if err != nil {
		return nil, sketchindex.NewIoError("trie.Load: read header", err)
	}

	idx := &Index{
		cfg:     cfg,
		hp:      ints[0],
		hm:      ints[1],
		ms:      ints[2],
		numKeys: ints[3],
		numIDs:  ints[4],
		logger:  logger,
		mc:      mc,
	}

	if idx.levels, _, err = readLevels(r); err != nil {
		return nil, sketchindex.NewIoError("trie.Load: read levels", err)
	}

	idx.dhts = &bitseq.BitVector{}
	if _, err := idx.dhts.ReadFrom(r); err != nil {
		return nil, sketchindex.NewIoError("trie.Load: read dhts", err)
	}
	idx.listBits = &bitseq.BitVector{}
	if _, err := idx.listBits.ReadFrom(r); err != nil {
		return nil, sketchindex.NewIoError("trie.Load: read listBits", err)
	}
	idx.listChars = &packed.Array{}
	if _, err := idx.listChars.ReadFrom(r); err != nil {
		return nil, sketchindex.NewIoError("trie.Load: read listChars", err)
	}
	idx.leafBegs = &bitseq.BitVector{}
	if _, err := idx.leafBegs.ReadFrom(r); err != nil {
		return nil, sketchindex.NewIoError("trie.Load: read leafBegs", err)
	}
	idx.idBegs = &bitseq.BitVector{}
	if _, err := idx.idBegs.ReadFrom(r); err != nil {
		return nil, sketchindex.NewIoError("trie.Load: read idBegs", err)
	}
	idx.ids = &packed.Array{}
	if _, err := idx.ids.ReadFrom(r); err != nil {
		return nil, sketchindex.NewIoError("trie.Load: read ids", err)
	}
	if idx.sufCodes, _, err = readSuffixCodes(r); err != nil {
		return nil, sketchindex.NewIoError("trie.Load: read suffix codes", err)
	}

	logger.LogDeserialize(nil, "trie", idx.numKeys, nil)
	return idx, nil
}
