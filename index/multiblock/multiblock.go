// Package multiblock implements the multi-block partition: splits a
// sketch into B column blocks, runs one sub-index per block with a
// pigeonhole-apportioned error budget, unions candidates with
// RoaringBitmap-backed dedup, and verifies survivors against the full
// vertical bitcode.
package multiblock

import (
	"context"
	"encoding/binary"
	"io"
	"runtime"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/sketchindex"
	"github.com/hupe1980/sketchindex/internal/entryset"
	"github.com/hupe1980/sketchindex/internal/vbits"
	"github.com/hupe1980/sketchindex/index"
	"github.com/hupe1980/sketchindex/index/hash"
	"github.com/hupe1980/sketchindex/index/trie"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// block is one column partition's tagged-variant sub-index, per the
// "template dispatch" design note: the kind tag resolves which of the
// two concrete fields is populated, avoiding an interface whose method
// set would otherwise have to be reconciled across hash and trie's
// distinct concrete Searcher types.
type block struct {
	kind   index.Kind
	width  int
	offset int

	hashIdx *hash.Index
	trieIdx *trie.Index
}

func (b *block) writeTo(w io.Writer) (int64, error) {
	if b.kind == index.KindHash {
		return b.hashIdx.WriteTo(w)
	}
	return b.trieIdx.WriteTo(w)
}

// blockSearcher is the per-query scratch for one block's sub-index.
type blockSearcher struct {
	kind     index.Kind
	hashSrch *hash.Searcher
	trieSrch *trie.Searcher
}

func (bs *blockSearcher) search(query sketchindex.Sketch, budget int, dst []sketchindex.Score, stat *sketchindex.Stat) ([]sketchindex.Score, error) {
	if bs.kind == index.KindHash {
		return bs.hashSrch.Search(query, budget, dst, stat)
	}
	return bs.trieSrch.Search(query, budget, dst, stat)
}

// Index is the built, read-only multi-block index.
type Index struct {
	cfg    sketchindex.Config
	blocks []*block

	// verifyCode maps every known id to its full-dimension vertical
	// bitcode, for the final exact-distance verification pass.
	verifyCode map[uint64]vbits.Code

	numKeys int

	logger *sketchindex.Logger
	mc     sketchindex.MetricsCollector
}

// Build partitions sketches (N rows of cfg.Dim masked bytes each) into
// cfg.Blocks column blocks and builds one sub-index of the given kind
// per block. ids assigns an external id to row i; nil means row index.
func Build(kind index.Kind, sketches []byte, cfg sketchindex.Config, ids []uint64, opts ...sketchindex.Option) (*Index, error) {
	if err := cfg.ValidateMultiBlock(); err != nil {
		return nil, err
	}
	logger, mc, _ := sketchindex.ApplyOptions(opts)

	n := len(sketches) / cfg.Dim
	mask := cfg.Mask()

	masked := make([]byte, len(sketches))
	for i, v := range sketches {
		masked[i] = v & mask
	}

	verifyCode := make(map[uint64]vbits.Code, n)
	for row := 0; row < n; row++ {
		id := uint64(row)
		if ids != nil {
			id = ids[row]
		}
		key := masked[row*cfg.Dim : (row+1)*cfg.Dim]
		verifyCode[id] = vbits.Encode(key, cfg.Dim, cfg.Bits)
	}

	widths := cfg.BlockWidths()
	offsets := make([]int, cfg.Blocks)
	for i := 1; i < cfg.Blocks; i++ {
		offsets[i] = offsets[i-1] + widths[i-1]
	}

	blocks := make([]*block, cfg.Blocks)

	g, ctx := errgroup.WithContext(context.Background())
	sem := semaphore.NewWeighted(int64(max(1, runtime.NumCPU())))

	for bIdx := 0; bIdx < cfg.Blocks; bIdx++ {
		bIdx := bIdx
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			width := widths[bIdx]
			offset := offsets[bIdx]
			subFlat := make([]byte, 0, n*width)
			for row := 0; row < n; row++ {
				key := masked[row*cfg.Dim : (row+1)*cfg.Dim]
				subFlat = append(subFlat, key[offset:offset+width]...)
			}

			subCfg := cfg
			subCfg.Dim = width
			subCfg.Blocks = 1
			subSet := entryset.Build(subFlat, width, ids)

			b := &block{kind: kind, width: width, offset: offset}
			var err error
			switch kind {
			case index.KindHash:
				b.hashIdx, err = hash.Build(subSet, subCfg)
			default:
				b.trieIdx, err = trie.Build(subSet, subCfg)
			}
			if err != nil {
				return err
			}
			blocks[bIdx] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		mc.RecordBuild("multiblock", n, err)
		return nil, err
	}

	idx := &Index{
		cfg:        cfg,
		blocks:     blocks,
		verifyCode: verifyCode,
		numKeys:    n,
		logger:     logger,
		mc:         mc,
	}
	logger.LogBuild(nil, "multiblock", n, n, nil)
	mc.RecordBuild("multiblock", n, nil)
	return idx, nil
}

// NumKeys returns the number of rows the index was built over.
func (idx *Index) NumKeys() int { return idx.numKeys }

// Config returns the index's configuration.
func (idx *Index) Config() sketchindex.Config { return idx.cfg }

// NewSearcher returns a fresh per-query scratch Searcher over idx.
func (idx *Index) NewSearcher() *Searcher {
	searchers := make([]*blockSearcher, len(idx.blocks))
	for i, b := range idx.blocks {
		bs := &blockSearcher{kind: b.kind}
		if b.kind == index.KindHash {
			bs.hashSrch = b.hashIdx.NewSearcher()
		} else {
			bs.trieSrch = b.trieIdx.NewSearcher()
		}
		searchers[i] = bs
	}
	return &Searcher{idx: idx, blockSearchers: searchers}
}

// WriteTo serialises the index: config, block widths, then every
// block's sub-index and the verification code table.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	var n int64
	add := func(wn int64, err error) error {
		n += wn
		return err
	}

	if err := add(idx.cfg.WriteTo(w)); err != nil {
		return n, err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(idx.blocks))); err != nil {
		return n, err
	}
	n += 8

	for _, b := range idx.blocks {
		if err := binary.Write(w, binary.LittleEndian, uint64(b.kind)); err != nil {
			return n, err
		}
		n += 8
		if err := add(b.writeTo(w)); err != nil {
			return n, err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(idx.verifyCode))); err != nil {
		return n, err
	}
	n += 8
	codeIDs := make([]uint64, 0, len(idx.verifyCode))
	for id := range idx.verifyCode {
		codeIDs = append(codeIDs, id)
	}
	sort.Slice(codeIDs, func(a, b int) bool { return codeIDs[a] < codeIDs[b] })
	for _, id := range codeIDs {
		code := idx.verifyCode[id]
		if err := binary.Write(w, binary.LittleEndian, id); err != nil {
			return n, err
		}
		n += 8
		if err := binary.Write(w, binary.LittleEndian, uint64(len(code))); err != nil {
			return n, err
		}
		n += 8
		if len(code) > 0 {
			if err := binary.Write(w, binary.LittleEndian, []uint64(code)); err != nil {
				return n, err
			}
			n += int64(len(code)) * 8
		}
	}
	return n, nil
}

// Load deserialises an index written by WriteTo.
func Load(r io.Reader, opts ...sketchindex.Option) (*Index, error) {
	logger, mc, _ := sketchindex.ApplyOptions(opts)

	var cfg sketchindex.Config
	if _, err := cfg.ReadFrom(r); err != nil {
		return nil, sketchindex.NewIoError("multiblock.Load: read config", err)
	}

	var numBlocks uint64
	if err := binary.Read(r, binary.LittleEndian, &numBlocks); err != nil {
		return nil, sketchindex.NewIoError("multiblock.Load: read block count", err)
	}

	widths := cfg.BlockWidths()
	offsets := make([]int, cfg.Blocks)
	for i := 1; i < cfg.Blocks; i++ {
		offsets[i] = offsets[i-1] + widths[i-1]
	}

	blocks := make([]*block, numBlocks)
	for i := range blocks {
		var kind uint64
		if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
			return nil, sketchindex.NewIoError("multiblock.Load: read block kind", err)
		}
		b := &block{kind: index.Kind(kind), width: widths[i], offset: offsets[i]}
		var err error
		switch b.kind {
		case index.KindHash:
			b.hashIdx, err = hash.Load(r)
		default:
			b.trieIdx, err = trie.Load(r)
		}
		if err != nil {
			return nil, sketchindex.NewIoError("multiblock.Load: read sub-index", err)
		}
		blocks[i] = b
	}

	var numCodes uint64
	if err := binary.Read(r, binary.LittleEndian, &numCodes); err != nil {
		return nil, sketchindex.NewIoError("multiblock.Load: read verify code count", err)
	}
	verifyCode := make(map[uint64]vbits.Code, numCodes)
	for i := uint64(0); i < numCodes; i++ {
		var id, width uint64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, sketchindex.NewIoError("multiblock.Load: read verify id", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
			return nil, sketchindex.NewIoError("multiblock.Load: read verify width", err)
		}
		code := make(vbits.Code, width)
		if width > 0 {
			if err := binary.Read(r, binary.LittleEndian, []uint64(code)); err != nil {
				return nil, sketchindex.NewIoError("multiblock.Load: read verify code", err)
			}
		}
		verifyCode[id] = code
	}
	numKeys := int(numCodes)

	idx := &Index{
		cfg:        cfg,
		blocks:     blocks,
		verifyCode: verifyCode,
		numKeys:    numKeys,
		logger:     logger,
		mc:         mc,
	}
	logger.LogDeserialize(nil, "multiblock", numKeys, nil)
	return idx, nil
}

// Searcher owns the per-query scratch for a multi-block Index: one
// sub-searcher per block plus the candidate-dedup bitmap.
type Searcher struct {
	idx            *Index
	blockSearchers []*blockSearcher
	dedup          *roaring64.Bitmap
}

// Search runs the pigeonhole-apportioned per-block queries, unions
// candidates with dedup, and verifies each first-seen candidate against
// the full vertical bitcode.
func (s *Searcher) Search(query sketchindex.Sketch, k int, dst []sketchindex.Score, stat *sketchindex.Stat) ([]sketchindex.Score, error) {
	cfg := s.idx.cfg
	b := cfg.Blocks

	kPrime := k - b + 1
	if kPrime < 0 {
		return dst, nil
	}

	if s.dedup == nil {
		s.dedup = roaring64.New()
	} else {
		s.dedup.Clear()
	}

	mask := cfg.Mask()
	full := make([]byte, cfg.Dim)
	for i := 0; i < cfg.Dim; i++ {
		full[i] = query[i] & mask
	}
	queryCode := vbits.Encode(full, cfg.Dim, cfg.Bits)

	var cands []sketchindex.Score
	for bIdx := 0; bIdx < b; bIdx++ {
		kB := (kPrime + bIdx) / b
		blk := s.idx.blocks[bIdx]
		subQuery := sketchindex.Sketch(full[blk.offset : blk.offset+blk.width])

		var err error
		cands, err = s.blockSearchers[bIdx].search(subQuery, kB, cands[:0], stat)
		if err != nil {
			return dst, err
		}

		for _, c := range cands {
			if s.dedup.Contains(c.ID) {
				continue
			}
			s.dedup.Add(c.ID)

			code, ok := s.idx.verifyCode[c.ID]
			if !ok {
				continue
			}
			dist := vbits.Hamming(queryCode, code, k)
			if stat != nil {
				stat.NumCands++
			}
			if dist > k {
				continue
			}
			dst = append(dst, sketchindex.Score{ID: c.ID, Errs: dist})
		}
	}
	return dst, nil
}
