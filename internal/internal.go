package internal

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
)

// ComputeNofBatches returns the number of batches the range from low to
// high is split into for a requested batch count n. A count of 0 selects
// twice runtime.GOMAXPROCS(0). A non-empty range never gets more
// batches than it has elements, and an empty range gets one.
//
// ComputeNofBatches panics if high < low or n < 0.
func ComputeNofBatches(low, high, n int) int {
	size := high - low
	if size < 0 {
		panic(fmt.Sprintf("invalid range: %v:%v", low, high))
	}
	if n < 0 {
		panic(fmt.Sprintf("invalid number of batches: %v", n))
	}
	if size == 0 {
		return 1
	}
	if n == 0 {
		n = 2 * runtime.GOMAXPROCS(0)
	}
	return min(n, size)
}

// ErrPanic marks errors that were produced from a recovered panic.
var ErrPanic = errors.New("recovered panic")

// stackError is a recovered panic together with the stack of the
// goroutine that recovered it.
type stackError struct {
	value any
	stack []byte
}

func (e *stackError) Error() string {
	return fmt.Sprintf("%v\n%s\nrethrown at", e.value, e.stack)
}

// Unwrap returns the panic value if it is an error.
func (e *stackError) Unwrap() error {
	err, _ := e.value.(error)
	return err
}

// runtimeStackError keeps a recovered runtime.Error a runtime.Error.
type runtimeStackError struct{ *stackError }

func (runtimeStackError) RuntimeError() {}

// WrapPanic attaches the current stack to a recovered panic value so
// that it can be panicked again on another goroutine. Errors stay
// errors, runtime errors stay runtime errors, and other values become
// strings. WrapPanic returns nil for nil.
func WrapPanic(p any) any {
	if p == nil {
		return nil
	}
	e := &stackError{value: p, stack: debug.Stack()}
	switch p.(type) {
	case runtime.Error:
		return runtimeStackError{e}
	case error:
		return e
	default:
		return e.Error()
	}
}

// PanicError converts a recovered panic value into an error that matches
// ErrPanic with errors.Is and carries the stack at the point of recovery.
// If the panic value was an error, it stays reachable with errors.Is and
// errors.As. It returns nil for a nil panic value.
func PanicError(p any) error {
	switch w := WrapPanic(p).(type) {
	case nil:
		return nil
	case error:
		return fmt.Errorf("%w: %w", ErrPanic, w)
	default:
		return fmt.Errorf("%w: %v", ErrPanic, w)
	}
}
