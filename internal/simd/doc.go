// Package simd provides bulk word-at-a-time operations over []uint64
// bit arrays: AND, ANDNOT, OR, XOR, and POPCOUNT.
//
// Each operation dispatches through a package-level kernel function
// variable so a platform-specific init() can swap in a faster
// implementation; the default kernel is a generic, unrolled-by-4 Go
// loop that runs everywhere.
package simd
