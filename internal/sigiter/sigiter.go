// Package sigiter enumerates every sketch at an exact Hamming distance
// from a base sketch: a combination of which positions differ, crossed
// with every non-zero per-position offset. Used by both the hash-table
// index (to probe every within-radius signature) and to budget the
// SIG_LIMIT safety cap before a query starts.
package sigiter

import "math/big"

// Count returns C(m, e) * (sigma-1)^e, the exact number of sketches at
// Hamming distance e from any base sketch of dimension m over an
// alphabet of size sigma. Used to size the SIG_LIMIT safety check
// before enumeration begins.
func Count(m, e, sigma int) uint64 {
	if e < 0 || e > m {
		return 0
	}
	c := binomial(m, e)
	offsets := new(big.Int).Exp(big.NewInt(int64(sigma-1)), big.NewInt(int64(e)), nil)
	c.Mul(c, offsets)
	if !c.IsUint64() {
		return ^uint64(0) // saturate; callers compare against SIG_LIMIT anyway
	}
	return c.Uint64()
}

func binomial(n, k int) *big.Int {
	return new(big.Int).Binomial(int64(n), int64(k))
}

// Generator lazily enumerates every sketch at Hamming distance exactly
// e from base, over dimension m and alphabet size sigma = 1<<bits. A
// Generator is reusable scratch state: call Set to (re)initialise it
// for a new (base, e) pair without reallocating.
type Generator struct {
	base  []byte
	m, e  int
	sigma int

	combo   []int // the e chosen positions, strictly increasing
	offsets []int // the e chosen non-zero offsets, one per chosen position

	cur  []byte // reusable output buffer
	done bool
}

// NewGenerator allocates a Generator sized for dimension m. Call Set
// before use.
func NewGenerator(m int) *Generator {
	return &Generator{
		cur: make([]byte, m),
	}
}

// Set (re)initialises the generator to enumerate sketches at distance e
// from base, over the first m positions with the given alphabet size.
// e == 0 yields a single signature equal to base itself.
func (g *Generator) Set(base []byte, m, e, sigma int) {
	g.base = base
	g.m = m
	g.e = e
	g.sigma = sigma
	g.combo = makeInts(g.combo, e)
	g.offsets = makeInts(g.offsets, e)
	if cap(g.cur) < m {
		g.cur = make([]byte, m)
	}
	g.cur = g.cur[:m]

	g.done = e > m || e < 0
	if !g.done {
		for i := 0; i < e; i++ {
			g.combo[i] = i
			g.offsets[i] = 1
		}
	}
}

func makeInts(dst []int, n int) []int {
	if cap(dst) < n {
		return make([]int, n)
	}
	return dst[:n]
}

// HasNext reports whether Next would return another signature.
func (g *Generator) HasNext() bool {
	return !g.done
}

// Next returns the next signature. The returned slice is reused
// internally and must be copied by the caller before the next call to
// Next if it needs to outlive that call.
func (g *Generator) Next() []byte {
	if g.e == 0 {
		copy(g.cur, g.base[:g.m])
		g.done = true
		return g.cur
	}

	g.fillUnselected()

	g.advance()
	return g.cur
}

func (g *Generator) fillUnselected() {
	copy(g.cur, g.base[:g.m])
	for i, p := range g.combo {
		g.cur[p] = byte((int(g.base[p]) + g.offsets[i]) % g.sigma)
	}
}

// advance moves the (offsets, combo) state to the next signature in
// lexicographic order: offsets form an odometer over [1, sigma-1]^e;
// when it wraps, combo advances to the next Gosper-style m-choose-e
// combination in lexicographic order of chosen positions.
func (g *Generator) advance() {
	// roll the offset odometer, least-significant position last
	for i := g.e - 1; i >= 0; i-- {
		g.offsets[i]++
		if g.offsets[i] < g.sigma {
			return
		}
		g.offsets[i] = 1
		if i == 0 {
			// odometer wrapped fully; advance the combination
			if !g.nextCombo() {
				g.done = true
				return
			}
			for j := range g.offsets {
				g.offsets[j] = 1
			}
			return
		}
	}
}

// nextCombo advances combo to the next e-subset of [0, m) in
// lexicographic order, Gosper-style. Returns false if combo was
// already the last combination.
func (g *Generator) nextCombo() bool {
	m, e := g.m, g.e
	i := e - 1
	for i >= 0 && g.combo[i] == m-e+i {
		i--
	}
	if i < 0 {
		return false
	}
	g.combo[i]++
	for j := i + 1; j < e; j++ {
		g.combo[j] = g.combo[j-1] + 1
	}
	return true
}
