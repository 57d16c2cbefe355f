package sketchindex

import "log/slog"

// Score is a single query result: the original input id, and the exact
// Hamming distance between the query and the stored sketch that
// produced that id.
type Score struct {
	ID   uint64
	Errs int
}

// LogValue lets a Score be passed directly to a slog call.
func (s Score) LogValue() slog.Value {
	return slog.GroupValue(slog.Uint64("id", s.ID), slog.Int("errs", s.Errs))
}

// Stat carries query-side instrumentation. A Stat is monotonically
// increasing across queries that share it; pass a fresh Stat (or the
// zero value) per query if per-query counts are needed instead of
// running totals.
type Stat struct {
	// NumCands is the number of candidates examined: ids passed to final
	// verification for the multi-block index, matched signatures for the
	// hash index, and suffix entries checked for the trie index.
	NumCands int
	// NumActNodes is reserved for future use and always zero.
	NumActNodes int
}

// LogValue lets a Stat be passed directly to a slog call.
func (s Stat) LogValue() slog.Value {
	return slog.GroupValue(slog.Int("num_cands", s.NumCands), slog.Int("num_actnodes", s.NumActNodes))
}
