// Package index holds the types shared across the hash, trie, and
// multiblock sub-packages: the sub-index kind tag used by the
// multi-block wrapper's tagged-variant dispatch — picked over a
// method-set interface because Go interfaces require exact method
// signatures and each sub-package's NewSearcher returns its own
// concrete scratch type.
package index

// Kind identifies which concrete sub-index implementation a multi-block
// wrapper's blocks are built from.
type Kind uint8

const (
	// KindHash selects the hash-table index for every block.
	KindHash Kind = iota
	// KindTrie selects the succinct trie index for every block.
	KindTrie
)

// String returns the canonical name of the sub-index kind.
func (k Kind) String() string {
	switch k {
	case KindHash:
		return "hash"
	case KindTrie:
		return "trie"
	default:
		return "unknown"
	}
}
