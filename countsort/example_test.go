package countsort_test

import (
	"fmt"

	"github.com/exascience/countbench/countsort"
)

func ExampleSort() {
	sorted, err := countsort.Sort([]uint64{5, 3, 3, 0, 2})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(sorted)

	// Output:
	// [0 2 3 3 5]
}

func ExampleHistogram_Accumulate() {
	in := []uint64{5, 3, 3, 0, 2}
	max, _ := countsort.Max(in)
	h, _ := countsort.NewHistogram(max)
	countsort.Count(h, in)
	fmt.Println(h)
	h.Accumulate()
	fmt.Println(h)

	// Output:
	// [1 0 1 2 0 1]
	// [1 1 2 4 4 5]
}
