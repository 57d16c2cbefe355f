package sketchindex

// Sketch is a fixed-length vector of symbols, each nominally in
// [0, Sigma). Callers are not required to pre-mask values; every read
// through Symbol masks with the configured Mask.
type Sketch []byte

// Symbol returns the masked symbol at position i.
func (s Sketch) Symbol(i int, mask byte) byte {
	return s[i] & mask
}

// Masked returns a copy of s with every symbol masked to cfg's alphabet.
func Masked(s Sketch, cfg Config) Sketch {
	mask := cfg.Mask()
	out := make(Sketch, len(s))
	for i, v := range s {
		out[i] = v & mask
	}
	return out
}

// Equal reports whether a and b are identical after masking, over the
// first n positions.
func Equal(a, b Sketch, n int, mask byte) bool {
	for i := 0; i < n; i++ {
		if a[i]&mask != b[i]&mask {
			return false
		}
	}
	return true
}

// HammingDistance returns the number of positions where a and b differ,
// over the first n positions, after masking. This is the direct,
// symbol-wise definition used by brute-force verification; the indexed
// paths compute the same quantity via vertical bitcodes (package
// internal/vbits) for speed.
func HammingDistance(a, b Sketch, n int, mask byte) int {
	d := 0
	for i := 0; i < n; i++ {
		if a[i]&mask != b[i]&mask {
			d++
		}
	}
	return d
}
