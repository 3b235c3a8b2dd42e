package countsort

import (
	"runtime"

	"github.com/exascience/countbench"
	"github.com/exascience/countbench/parallel"
	"github.com/exascience/countbench/sequential"
)

// minCountGrain is the smallest number of elements a count batch
// processes. Smaller batches spend more time merging partial
// histograms than counting.
const minCountGrain = 1 << 14

type (
	doFunc         func(thunks ...func() error) error
	rangeFunc      func(low, high, n int, f countbench.RangeFunc) error
	andFunc        func(low, high, n int, f countbench.RangePredicate) (bool, error)
	histReduceFunc func(low, high, n int, reduce func(low, high int) (Histogram, error), pair func(x, y Histogram) (Histogram, error)) (Histogram, error)
)

// An executor decides how the phases of counting sort are distributed.
// The phases themselves are the same for every executor.
type executor[K Key] struct {
	countBatches   func(n int) int
	scatterBatches func(buckets int) int
	do             doFunc
	forRange       rangeFunc
	and            andFunc
	histReduce     histReduceFunc
	maxReduce      func(low, high, n int, reduce func(low, high int) (K, error), pair func(x, y K) (K, error)) (K, error)
}

func sequentialExecutor[K Key]() executor[K] {
	one := func(int) int { return 1 }
	return executor[K]{
		countBatches:   one,
		scatterBatches: one,
		do:             sequential.Do,
		forRange:       sequential.Range,
		and:            sequential.RangeAnd,
		histReduce:     sequential.RangeReduce[Histogram],
		maxReduce:      sequential.RangeReduce[K],
	}
}

func parallelExecutor[K Key]() executor[K] {
	return executor[K]{
		countBatches: func(n int) int {
			grain := countbench.ComputeEffectiveThreshold(0, n, 1)
			if grain < minCountGrain {
				grain = minCountGrain
			}
			return countbench.BatchesForGrain(0, n, grain)
		},
		scatterBatches: func(buckets int) int {
			if procs := runtime.GOMAXPROCS(0); buckets > procs {
				return 2 * procs
			}
			return buckets
		},
		do:         parallel.Do,
		forRange:   parallel.Range,
		and:        parallel.RangeAnd,
		histReduce: parallel.RangeReduce[Histogram],
		maxReduce:  parallel.RangeReduce[K],
	}
}

func (x executor[K]) max(in []K) (K, error) {
	return x.maxReduce(
		0, len(in), x.countBatches(len(in)),
		func(low, high int) (K, error) {
			max, _ := Max(in[low:high])
			return max, nil
		},
		func(a, b K) (K, error) {
			if b > a {
				return b, nil
			}
			return a, nil
		},
	)
}

// count builds the histogram of in. Batches count into private
// histograms that are merged pairwise, unless those would together hold
// more counters than in has elements. Then all batches share one
// histogram and count with atomic increments, so that a wide key range
// costs a single histogram, as it does sequentially.
func (x executor[K]) count(in []K, max K) (Histogram, error) {
	batches := x.countBatches(len(in))
	if batches > 1 && (uint64(max)+1) > uint64(len(in))/uint64(batches) {
		h, err := NewHistogram(max)
		if err != nil {
			return nil, err
		}
		err = x.forRange(0, len(in), batches, func(low, high int) error {
			CountAtomic(h, in[low:high])
			return nil
		})
		return h, err
	}
	return x.histReduce(
		0, len(in), batches,
		func(low, high int) (Histogram, error) {
			h, err := NewHistogram(max)
			if err != nil {
				return nil, err
			}
			Count(h, in[low:high])
			return h, nil
		},
		func(left, right Histogram) (Histogram, error) {
			for i, c := range right {
				left[i] += c
			}
			return left, nil
		},
	)
}

func (x executor[K]) scatter(prefix Histogram, out []K) error {
	buckets := len(prefix)
	return x.forRange(0, buckets, x.scatterBatches(buckets), func(low, high int) error {
		Scatter(prefix, out, low, high)
		return nil
	})
}
