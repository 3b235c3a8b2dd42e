package bench

import (
	"fmt"
)

// A Sweep is a strictly increasing sequence of input sizes.
type Sweep []int

// decade describes one stretch of the default sweep: sizes from low
// (inclusive) to high (exclusive) in steps of step.
type decade struct {
	low, high, step int
}

var defaultDecades = []decade{
	{2, 100, 1},
	{100, 1000, 10},
	{1000, 10000, 100},
	{10000, 100000, 1000},
	{100000, 1000000, 10000},
	{1000000, 5000001, 100000},
}

// DefaultSweep returns the default sizes: every size from 2 to 99, then
// ten steps per decade up to one million, then steps of 100000 up to
// and including five million.
func DefaultSweep() Sweep {
	var sweep Sweep
	for _, d := range defaultDecades {
		for n := d.low; n < d.high; n += d.step {
			sweep = append(sweep, n)
		}
	}
	return sweep
}

// SweepUpTo returns the default sizes that do not exceed limit. A limit
// <= 0 returns the whole default sweep.
func SweepUpTo(limit int) Sweep {
	sweep := DefaultSweep()
	if limit <= 0 {
		return sweep
	}
	for i, n := range sweep {
		if n > limit {
			return sweep[:i]
		}
	}
	return sweep
}

// Validate checks that the sweep is non-empty, positive, and strictly
// increasing.
func (s Sweep) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty sweep", ErrInvalidSweep)
	}
	for i, n := range s {
		if n <= 0 {
			return fmt.Errorf("%w: size %d at index %d is not positive", ErrInvalidSweep, n, i)
		}
		if i > 0 && n <= s[i-1] {
			return fmt.Errorf("%w: size %d at index %d does not exceed %d", ErrInvalidSweep, n, i, s[i-1])
		}
	}
	return nil
}
