package speculative_test

import (
	"errors"
	"testing"

	"github.com/exascience/countbench/speculative"
)

func TestRangeAnd(t *testing.T) {
	s := make([]int, 1000)
	for i := range s {
		s[i] = i
	}
	increasing := func(low, high int) (bool, error) {
		for i := low; i < high; i++ {
			if s[i] <= s[i-1] {
				return false, nil
			}
		}
		return true, nil
	}
	if ok, err := speculative.RangeAnd(1, len(s), 8, increasing); !ok || err != nil {
		t.Errorf("got %v, %v; want true, nil", ok, err)
	}
	s[10] = 0
	if ok, err := speculative.RangeAnd(1, len(s), 8, increasing); ok || err != nil {
		t.Errorf("got %v, %v; want false, nil", ok, err)
	}
}

func TestRangeAndEarlyTermination(t *testing.T) {
	release := make(chan struct{})
	ok, err := speculative.RangeAnd(0, 2, 2, func(low, high int) (bool, error) {
		if low == 0 {
			return false, nil
		}
		<-release
		return true, nil
	})
	close(release)
	if ok || err != nil {
		t.Errorf("got %v, %v; want false, nil", ok, err)
	}
}

func TestRangeAndError(t *testing.T) {
	failure := errors.New("failure")
	_, err := speculative.RangeAnd(0, 100, 4, func(low, high int) (bool, error) {
		if low == 0 {
			return true, failure
		}
		return true, nil
	})
	if !errors.Is(err, failure) {
		t.Errorf("got %v, want %v", err, failure)
	}
}
