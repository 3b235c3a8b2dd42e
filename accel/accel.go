// Package accel defines the accelerator execution service that runs
// counting sort on a compute device, and provides the backends that
// implement it.
//
// A Service owns its device context, command queue, and compiled
// kernels. They are created once by Initialize, reused by every call
// of RunCountingSort, and released by Shutdown. Callers never see
// device handles.
//
// The "emulated" backend runs the kernels on host goroutines grouped
// into compute units, with separate device buffers and explicit data
// transfers, so that the device-offloaded strategy can be exercised on
// any machine. The "none" backend has no device and always fails to
// initialize.
package accel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrDeviceUnavailable is returned by Initialize when no compatible
	// device is found. It is fatal for the device-offloaded strategy.
	ErrDeviceUnavailable = errors.New("accel: no compatible device available")

	// ErrDeviceBusy is returned when the command queue of a device could
	// not be acquired within the acquire timeout. It is transient.
	ErrDeviceBusy = errors.New("accel: device busy")

	// ErrNotInitialized is returned when a service is used before
	// Initialize or after Shutdown.
	ErrNotInitialized = errors.New("accel: device not initialized")
)

// Service is the accelerator execution service.
type Service interface {
	// Initialize establishes the device context and compiles the
	// histogram, prefix-sum, and scatter kernels. It fails with
	// ErrDeviceUnavailable if no compatible device is found.
	Initialize(ctx context.Context) error

	// RunCountingSort executes the count, accumulate, and scatter phases
	// on the device for an input whose largest value is max, and returns
	// the sorted sequence. It returns only after the device has finished
	// and the result has been read back.
	RunCountingSort(ctx context.Context, in []uint64, max uint64) ([]uint64, error)

	// Shutdown releases the device resources. It is safe to call more
	// than once.
	Shutdown() error
}

// Options configure a backend.
type Options struct {
	// ComputeUnits is the number of work groups that execute
	// concurrently. Zero selects runtime.GOMAXPROCS(0) for the emulated
	// backend.
	ComputeUnits int

	// WorkGroupSize is the number of work items per work group. Zero
	// selects DefaultWorkGroupSize.
	WorkGroupSize int

	// AcquireTimeout bounds how long RunCountingSort waits for exclusive
	// use of the command queue before failing with ErrDeviceBusy. Zero
	// selects DefaultAcquireTimeout.
	AcquireTimeout time.Duration

	// MemoryLimit is the device memory in bytes. Zero means unlimited.
	MemoryLimit int64

	Logger *zap.Logger
}

const (
	DefaultWorkGroupSize  = 256
	DefaultAcquireTimeout = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.WorkGroupSize <= 0 {
		o.WorkGroupSize = DefaultWorkGroupSize
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = DefaultAcquireTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// A Backend creates a service from options.
type Backend func(Options) Service

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Backend)
)

// Register makes a backend available under name. It panics if name is
// already registered.
func Register(name string, b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("accel: backend %q registered twice", name))
	}
	backends[name] = b
}

// Backends returns the names of all registered backends in sorted
// order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns an uninitialized service of the named backend. An
// unknown name yields ErrDeviceUnavailable.
func Open(name string, opts Options) (Service, error) {
	backendsMu.RLock()
	b, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q", ErrDeviceUnavailable, name)
	}
	return b(opts.withDefaults()), nil
}

func init() {
	Register("emulated", func(opts Options) Service { return NewEmulator(opts) })
	Register("none", func(Options) Service { return none{} })
}

// none is a backend without a device.
type none struct{}

func (none) Initialize(context.Context) error { return ErrDeviceUnavailable }

func (none) RunCountingSort(context.Context, []uint64, uint64) ([]uint64, error) {
	return nil, ErrNotInitialized
}

func (none) Shutdown() error { return nil }
