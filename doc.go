// Package sketchindex performs approximate near-neighbor search over a
// corpus of fixed-length low-alphabet integer sketches under Hamming
// distance.
//
// A sketch is a vector of up to 64 symbols, each symbol at most 8 bits
// wide. Given a query sketch and an error budget k, a search returns
// every stored sketch within Hamming distance k of the query, together
// with the exact distance. Results are exact within the given radius;
// this package performs no approximate recall.
//
// Three index implementations share a common contract (see the index
// package): a hash-table index paired with a signature generator
// (package index/hash), a succinct three-layer trie (package
// index/trie), and a multi-block partition that wraps either of the
// above per column block (package index/multiblock). All three are
// built once from a complete key set and are read-only afterward;
// concurrent queries against the same index are safe as long as each
// query uses its own Searcher.
//
// # Usage
//
//	cfg := sketchindex.Config{Dim: 32, Bits: 2, Blocks: 1}
//	sketches, err := bvecsio.Read(r, cfg)
//	set := entryset.Build(sketches, cfg.Dim, nil)
//	idx, err := hash.Build(set, cfg)
//	s := idx.NewSearcher()
//	var stat sketchindex.Stat
//	scores, err := s.Search(query, k, nil, &stat)
package sketchindex
