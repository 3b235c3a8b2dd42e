package bench

import (
	"github.com/exascience/countbench/strategy"
)

// Progress is reported after each completed size of a sweep.
type Progress struct {
	Strategy  strategy.ID
	Completed int
	Total     int
	// Percent is Completed*100/Total; it increases monotonically and is
	// 100 after the last size.
	Percent float64
}

// A ProgressFunc receives progress reports on the goroutine that runs
// the sweep. It must not block for long.
type ProgressFunc func(Progress)

// ProgressChan returns a ProgressFunc that sends to ch, dropping reports
// the receiver is not ready for.
func ProgressChan(ch chan<- Progress) ProgressFunc {
	return func(p Progress) {
		select {
		case ch <- p:
		default:
		}
	}
}
