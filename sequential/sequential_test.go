package sequential_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/exascience/countbench/parallel"
	"github.com/exascience/countbench/sequential"
)

func ExampleRangeReduce() {
	sum, _ := sequential.RangeReduce(0, 10, 3,
		func(low, high int) (sum int, _ error) {
			for i := low; i < high; i++ {
				sum += i
			}
			return
		},
		func(x, y int) (int, error) { return x + y, nil },
	)
	fmt.Println(sum)

	// Output:
	// 45
}

func TestSameBatchesAsParallel(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 16} {
		collect := func(low, high int) ([][2]int, error) {
			return [][2]int{{low, high}}, nil
		}
		join := func(x, y [][2]int) ([][2]int, error) { return append(x, y...), nil }

		seq, _ := sequential.RangeReduce(0, 100, n, collect, join)
		par, _ := parallel.RangeReduce(0, 100, n, collect, join)
		if !reflect.DeepEqual(seq, par) {
			t.Errorf("n=%v: sequential batches %v, parallel batches %v", n, seq, par)
		}
	}
}

func TestDoLeftmostError(t *testing.T) {
	first, second := errors.New("first"), errors.New("second")
	var ran int
	err := sequential.Do(
		func() error { ran++; return nil },
		func() error { ran++; return first },
		func() error { ran++; return second },
	)
	if err != first || ran != 3 {
		t.Errorf("got %v after %v thunks, want %v after 3", err, ran, first)
	}
}

func TestRangeAnd(t *testing.T) {
	var visited []int
	ok, err := sequential.RangeAnd(0, 8, 4, func(low, high int) (bool, error) {
		visited = append(visited, low)
		return low < 4, nil
	})
	if ok || err != nil {
		t.Errorf("got %v, %v; want false, nil", ok, err)
	}
	if !reflect.DeepEqual(visited, []int{0, 2, 4, 6}) {
		t.Errorf("visited %v", visited)
	}
}
