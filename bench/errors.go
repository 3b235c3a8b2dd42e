package bench

import (
	"errors"
	"fmt"

	"github.com/exascience/countbench/accel"
	"github.com/exascience/countbench/countsort"
	"github.com/exascience/countbench/strategy"
)

var (
	// ErrResourceExhausted is returned when the buffers of a trial
	// cannot be allocated, or when a size exceeds the configured limit.
	ErrResourceExhausted = countsort.ErrResourceExhausted

	// ErrNoResults reports that no strategy has completed a sweep yet.
	// It is a benign state, not a failure.
	ErrNoResults = errors.New("no results yet")

	// ErrSessionBusy is returned by Run while another run of the same
	// session is in progress.
	ErrSessionBusy = errors.New("benchmark session busy")

	// ErrSessionClosed is returned by Run after Close.
	ErrSessionClosed = errors.New("benchmark session closed")

	// ErrVerification is returned when a strategy produces an output
	// that is not a sorted permutation of its input.
	ErrVerification = errors.New("sort verification failed")

	// ErrInvalidSweep is returned for sweeps that are empty or not
	// strictly increasing.
	ErrInvalidSweep = errors.New("invalid sweep")
)

// A RunError reports the trial that aborted a sweep.
type RunError struct {
	Strategy strategy.ID
	Size     int
	Trial    int
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%v sweep aborted at size %d, trial %d: %v", e.Strategy, e.Size, e.Trial, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Retryable reports whether err is transient, so that running the same
// sweep again later may succeed. Nothing in this module retries
// automatically; the decision is left to the caller.
func Retryable(err error) bool {
	return errors.Is(err, accel.ErrDeviceBusy)
}
