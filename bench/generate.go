package bench

import (
	"pgregory.net/rand"
)

const (
	// DefaultSeed seeds the input generator.
	DefaultSeed = 0
	// DefaultBound is the exclusive upper bound of generated values.
	DefaultBound = 1000
)

// GenerateArray returns n pseudo-random values in [0, bound). The
// sequence depends only on n, seed, and bound, so every strategy sorts
// identical inputs and repeated runs are reproducible.
func GenerateArray(n int, seed, bound uint64) []uint64 {
	if bound == 0 {
		bound = DefaultBound
	}
	r := rand.New(seed)
	arr := make([]uint64, n)
	for i := range arr {
		arr[i] = r.Uint64n(bound)
	}
	return arr
}
