// Package testutil provides testing utilities for sketchindex.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random sketches, mutating them at
// an exact Hamming distance, computing brute-force ground truth, and
// verifying search recall.
//
// # Random Sketch Generation
//
//	rng := testutil.NewRNG(seed)
//	flat := rng.Sketches(100, dim, sigma) // 100 concatenated dim-byte sketches
//	mutated := rng.Mutate(flat[:dim], 3, sigma) // flat[:dim] with exactly 3 positions changed
//
// # Exact Search (Ground Truth)
//
//	want := testutil.BruteForceSearch(flat, dim, nil, query, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(want, got)
package testutil
