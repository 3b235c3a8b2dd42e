package countbench

import (
	"runtime"
	"testing"
)

func TestComputeEffectiveThreshold(t *testing.T) {
	procs := runtime.GOMAXPROCS(0)
	if got := ComputeEffectiveThreshold(0, 0, 1); got != 1 {
		t.Errorf("empty range: got %v, want 1", got)
	}
	if got := ComputeEffectiveThreshold(0, 100, 0); got != 1 {
		t.Errorf("threshold 0: got %v, want 1", got)
	}
	if got := ComputeEffectiveThreshold(0, 100, -7); got != 7 {
		t.Errorf("threshold -7: got %v, want 7", got)
	}
	size := 1000 * procs
	if got := ComputeEffectiveThreshold(0, size, 1); got != 1000 {
		t.Errorf("threshold 1: got %v, want 1000", got)
	}
}

func TestBatchesForGrain(t *testing.T) {
	for _, c := range []struct{ low, high, grain, want int }{
		{0, 0, 10, 1},
		{0, 10, 10, 1},
		{0, 11, 10, 2},
		{5, 25, 4, 5},
	} {
		if got := BatchesForGrain(c.low, c.high, c.grain); got != c.want {
			t.Errorf("BatchesForGrain(%v, %v, %v) = %v, want %v", c.low, c.high, c.grain, got, c.want)
		}
	}
}
