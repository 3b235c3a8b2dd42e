package countbench

import (
	"fmt"
	"runtime"
)

type (
	// A RangeFunc is a function that receives a range from low to high,
	// with 0 <= low <= high, and returns an error value or nil.
	RangeFunc func(low, high int) error

	// A RangePredicate is a function that receives a range from low to
	// high, with 0 <= low <= high, and returns a bool, and an error value
	// or nil.
	RangePredicate func(low, high int) (bool, error)
)

/*
ComputeEffectiveThreshold determines a grain size for splitting the
range from low to high, with 0 <= low <= high, into batches.

Useful threshold parameter values are 1 to evenly divide up the range
across the available logical CPUs (as determined by
runtime.GOMAXPROCS(0)); or 2 or higher to additionally divide that
number by the threshold parameter.

A threshold parameter value of 0 yields a grain size of 1. A value
below zero specifies the grain size directly, which becomes the
absolute value of the threshold parameter value.

More specifically:

If the input threshold is > 0, the return value is ceiling((high -
low) / (threshold * runtime.GOMAXPROCS(0))).

If the input threshold is == 0, the return value is 1.

If the input threshold is < 0, the return value is abs(threshold).
*/
func ComputeEffectiveThreshold(low, high, threshold int) int {
	if (low < 0) || (high < low) {
		panic(fmt.Sprintf("invalid range: %v:%v", low, high))
	}
	switch {
	case threshold > 0:
		if high == low {
			return 1
		}
		return ((high - low - 1) / (threshold * runtime.GOMAXPROCS(0))) + 1
	case threshold < 0:
		return -threshold
	default:
		return 1
	}
}

// BatchesForGrain returns the number of batches needed to cover the
// range from low to high with batches of at most grain elements. It
// returns 1 for an empty range.
func BatchesForGrain(low, high, grain int) int {
	if grain <= 0 {
		panic(fmt.Sprintf("invalid grain size: %v", grain))
	}
	size := high - low
	if size <= 0 {
		return 1
	}
	return (size + grain - 1) / grain
}
