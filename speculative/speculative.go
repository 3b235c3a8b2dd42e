/*
Package speculative provides functions for expressing parallel
algorithms, similar to the functions in package parallel, except that
the implementations here terminate early when they can.

RangeAnd terminates early if the final return value is known early (if
any of the predicates invoked in parallel returns false), or if any
predicate returns a non-nil error value.

RangeAnd does not stop the execution of invoked functions that may
still be running in parallel in case of early termination. To ensure that compute resources are freed up in such
cases, user programs need to use some other safe form of communication
to gracefully stop their execution, for example an atomic flag that
the invoked functions poll periodically.
*/
package speculative

import (
	"fmt"
	"sync"

	"github.com/exascience/countbench"
	"github.com/exascience/countbench/internal"
)

/*
RangeAnd receives a range, a batch count, and a RangePredicate
function, divides the range into batches, and invokes the range
predicate for each of these batches in parallel.

The range predicate is invoked for each batch in its own goroutine,
and RangeAnd returns true if all of them return true; or RangeAnd
returns false when at least one of them returns false, without
waiting for the other range predicates to terminate. RangeAnd may
also return the left-most error value that is different from nil as a
second return value.

RangeAnd panics if high < low, or if n < 0.

If one or more range predicates panic, the corresponding goroutines
recover the panics, and RangeAnd may eventually panic with the
left-most recovered panic value. If both panics occur on the one hand,
and false or non-nil error values are returned on the other hand, then
the left-most of these two kinds of events takes precedence.
*/
func RangeAnd(low, high, n int, f countbench.RangePredicate) (bool, error) {
	var recur func(int, int, int) (bool, error)
	recur = func(low, high, n int) (bool, error) {
		switch {
		case n == 1:
			return f(low, high)
		case n > 1:
			batchSize := ((high - low - 1) / n) + 1
			half := n / 2
			mid := low + batchSize*half
			if mid >= high {
				return f(low, high)
			}
			var b1 bool
			var err1 error
			var p interface{}
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer func() {
					p = internal.WrapPanic(recover())
					wg.Done()
				}()
				b1, err1 = recur(mid, high, n-half)
			}()
			b0, err0 := recur(low, mid, half)
			if !b0 || (err0 != nil) {
				return b0, err0
			}
			wg.Wait()
			if p != nil {
				panic(p)
			}
			return b1, err1
		default:
			panic(fmt.Sprintf("invalid number of batches: %v", n))
		}
	}
	return recur(low, high, internal.ComputeNofBatches(low, high, n))
}
