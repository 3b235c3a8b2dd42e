/*
Package countsort provides counting sort for slices of unsigned
integers whose values are bounded by a small maximum.

Counting sort runs in three phases:

Count computes a histogram of the input, with one counter per value
from 0 up to the largest value in the input.

Accumulate transforms the histogram in place into a prefix table, so
that prefix[v] is the number of elements with a value <= v.

Scatter fills, for each value v, the output positions
[prefix[v-1], prefix[v]) with v.

Sort runs all three phases sequentially. ParallelSort runs the count
and scatter phases in parallel, with a barrier between each pair of
phases. Both return a freshly allocated output slice and leave the
input untouched.

The largest value is recomputed on every call; no external bound is
supplied. Counters and positions are uint64, so they hold the length of
any input.
*/
package countsort

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// Key is the set of element types counting sort accepts.
type Key interface {
	constraints.Unsigned
}

// MaxHistogramLen bounds the number of counters a histogram may have.
// Inputs whose largest value would require more counters are rejected
// with ErrResourceExhausted instead of attempting the allocation.
const MaxHistogramLen = 1 << 28

// ErrResourceExhausted is returned when a histogram or output buffer
// cannot be allocated.
var ErrResourceExhausted = errors.New("countsort: resource exhausted")

// A Histogram holds one counter per value, indexed from 0 to the
// largest value of the counted input. After Accumulate it holds the
// prefix table instead.
type Histogram []uint64

// NewHistogram returns a zeroed histogram with max+1 counters.
func NewHistogram[K Key](max K) (Histogram, error) {
	if uint64(max) >= MaxHistogramLen {
		return nil, fmt.Errorf("%w: %d histogram counters", ErrResourceExhausted, uint64(max)+1)
	}
	h, err := allocate[uint64](int(max) + 1)
	return Histogram(h), err
}

// Sum returns the total of all counters.
func (h Histogram) Sum() (sum uint64) {
	for _, c := range h {
		sum += c
	}
	return
}

// Accumulate transforms the histogram in place into a prefix table.
// Each counter depends on its predecessor, so this phase is always a
// single sequential pass.
func (h Histogram) Accumulate() {
	for i := 1; i < len(h); i++ {
		h[i] += h[i-1]
	}
}

// Bounds returns the half-open output range [start, end) that bucket v
// of a prefix table occupies.
func (h Histogram) Bounds(v int) (start, end uint64) {
	if v > 0 {
		start = h[v-1]
	}
	return start, h[v]
}

// Max returns the largest value of in. The second result is false for
// an empty input.
func Max[K Key](in []K) (max K, ok bool) {
	if len(in) == 0 {
		return 0, false
	}
	max = in[0]
	for _, v := range in[1:] {
		if v > max {
			max = v
		}
	}
	return max, true
}

// Count increments h[v] for every element v of in.
//
// Count is not safe for concurrent use on the same histogram; see
// CountAtomic.
func Count[K Key](h Histogram, in []K) {
	for _, v := range in {
		h[uint64(v)]++
	}
}

// CountAtomic increments h[v] for every element v of in using atomic
// additions, so that several goroutines may count into the same
// histogram.
func CountAtomic[K Key](h Histogram, in []K) {
	for _, v := range in {
		atomic.AddUint64(&h[uint64(v)], 1)
	}
}

// Scatter fills the output ranges of the buckets from low to high,
// including low but excluding high, according to the prefix table.
// Calls with disjoint bucket ranges write disjoint parts of out and
// need no synchronization.
func Scatter[K Key](prefix Histogram, out []K, low, high int) {
	for v := low; v < high; v++ {
		start, end := prefix.Bounds(v)
		fill := out[start:end]
		for i := range fill {
			fill[i] = K(v)
		}
	}
}

// Sort returns a sorted copy of in, running count, accumulate and
// scatter as single-threaded loops.
func Sort[K Key](in []K) ([]K, error) {
	return sortWith(in, sequentialExecutor[K]())
}

// ParallelSort returns a sorted copy of in. The count phase is split
// into batches that count into private histograms, merged pairwise
// afterwards; the scatter phase is split into disjoint bucket ranges.
// Accumulate remains sequential.
func ParallelSort[K Key](in []K) ([]K, error) {
	return sortWith(in, parallelExecutor[K]())
}

func sortWith[K Key](in []K, x executor[K]) ([]K, error) {
	if len(in) == 0 {
		return []K{}, nil
	}
	max, err := x.max(in)
	if err != nil {
		return nil, err
	}
	hist, err := x.count(in, max)
	if err != nil {
		return nil, err
	}
	hist.Accumulate()
	out, err := allocate[K](len(in))
	if err != nil {
		return nil, err
	}
	if err := x.scatter(hist, out); err != nil {
		return nil, err
	}
	return out, nil
}

// allocate converts the runtime panic of an impossible allocation into
// ErrResourceExhausted. Running out of memory for a possible one is
// still fatal.
func allocate[T any](n int) (s []T, err error) {
	defer func() {
		if p := recover(); p != nil {
			if _, ok := p.(runtime.Error); !ok {
				panic(p)
			}
			s, err = nil, fmt.Errorf("%w: %v", ErrResourceExhausted, p)
		}
	}()
	return make([]T, n), nil
}
