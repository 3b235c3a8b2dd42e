package countsort

import (
	"sync/atomic"

	"github.com/exascience/countbench"
	"github.com/exascience/countbench/sequential"
	"github.com/exascience/countbench/speculative"
)

const sortedGrainSize = 1 << 15

func sortedRange[K Key](in []K, done *atomic.Bool) countbench.RangePredicate {
	return func(low, high int) (bool, error) {
		for i := low; i < high; i++ {
			if done != nil && (i%1024) == 0 && done.Load() {
				return false, nil
			}
			if in[i] < in[i-1] {
				return false, nil
			}
		}
		return true, nil
	}
}

// IsSorted reports whether in is in non-decreasing order.
func IsSorted[K Key](in []K) bool {
	if len(in) < 2 {
		return true
	}
	ok, _ := sequential.RangeAnd(1, len(in), 1, sortedRange(in, nil))
	return ok
}

// ParallelIsSorted determines in parallel whether in is in
// non-decreasing order. It attempts to terminate early when the return
// value is false.
func ParallelIsSorted[K Key](in []K) bool {
	if len(in) < sortedGrainSize {
		return IsSorted(in)
	}
	var done atomic.Bool
	defer done.Store(true)
	ok, _ := speculative.RangeAnd(1, len(in), 0, sortedRange(in, &done))
	return ok
}

// SameMultiset reports whether a and b contain the same values with
// the same number of occurrences, that is whether one is a permutation
// of the other.
func SameMultiset[K Key](a, b []K) bool {
	return sameMultiset(a, b, sequentialExecutor[K]())
}

// ParallelSameMultiset is SameMultiset with the histograms of a and b
// built and compared in parallel.
func ParallelSameMultiset[K Key](a, b []K) bool {
	return sameMultiset(a, b, parallelExecutor[K]())
}

func sameMultiset[K Key](a, b []K, x executor[K]) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	var maxA, maxB K
	if err := x.do(
		func() (err error) { maxA, err = x.max(a); return },
		func() (err error) { maxB, err = x.max(b); return },
	); err != nil {
		return sameMultisetSparse(a, b)
	}
	if maxA != maxB {
		return false
	}
	var ha, hb Histogram
	err := x.do(
		func() (err error) { ha, err = x.count(a, maxA); return },
		func() (err error) { hb, err = x.count(b, maxB); return },
	)
	if err != nil {
		return sameMultisetSparse(a, b)
	}
	ok, _ := x.and(0, len(ha), x.scatterBatches(len(ha)), func(low, high int) (bool, error) {
		for i := low; i < high; i++ {
			if ha[i] != hb[i] {
				return false, nil
			}
		}
		return true, nil
	})
	return ok
}

// sameMultisetSparse compares value ranges too large for a histogram.
func sameMultisetSparse[K Key](a, b []K) bool {
	counts := make(map[K]int)
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		c := counts[v]
		if c == 0 {
			return false
		}
		counts[v] = c - 1
	}
	return true
}
