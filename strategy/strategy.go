// Package strategy provides the execution strategies of counting sort.
//
// Every strategy runs the same three-phase algorithm from package
// countsort; they differ only in where and how the phases execute.
// A Strategy performs one trial: it sorts one input and returns the
// materialized output.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/exascience/countbench/countsort"
)

// ID identifies a strategy.
type ID int

const (
	// Sequential runs all phases as single-threaded loops.
	Sequential ID = iota
	// Parallel runs the count and scatter phases across all cores.
	Parallel
	// Device runs all phases on an accelerator.
	Device
)

// ErrUnknownStrategy is returned for IDs and names that do not denote a
// strategy.
var ErrUnknownStrategy = errors.New("unknown strategy")

var names = [...]string{
	Sequential: "sequential",
	Parallel:   "parallel",
	Device:     "device",
}

var aliases = map[string]ID{
	"sequential": Sequential,
	"seq":        Sequential,
	"single":     Sequential,
	"singlecore": Sequential,
	"parallel":   Parallel,
	"par":        Parallel,
	"multi":      Parallel,
	"multicore":  Parallel,
	"device":     Device,
	"gpu":        Device,
	"igpu":       Device,
	"accel":      Device,
}

// IDs returns all strategy IDs in presentation order.
func IDs() []ID {
	return []ID{Sequential, Parallel, Device}
}

func (id ID) String() string {
	if id.Valid() {
		return names[id]
	}
	return fmt.Sprintf("ID(%d)", int(id))
}

// Valid reports whether id denotes a strategy.
func (id ID) Valid() bool {
	return id >= Sequential && id <= Device
}

// ParseID returns the strategy with the given name. Names are case
// insensitive, and a few common aliases such as "multicore" or "gpu"
// are accepted.
func ParseID(name string) (ID, error) {
	if id, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// A Strategy runs one sort trial.
type Strategy interface {
	ID() ID

	// Sort returns a sorted copy of in. It does not modify in.
	Sort(ctx context.Context, in []uint64) ([]uint64, error)
}

type sequentialStrategy struct{}

// NewSequential returns the single-threaded strategy.
func NewSequential() Strategy { return sequentialStrategy{} }

func (sequentialStrategy) ID() ID { return Sequential }

func (sequentialStrategy) Sort(_ context.Context, in []uint64) ([]uint64, error) {
	return countsort.Sort(in)
}

type parallelStrategy struct{}

// NewParallel returns the shared-memory parallel strategy.
func NewParallel() Strategy { return parallelStrategy{} }

func (parallelStrategy) ID() ID { return Parallel }

func (parallelStrategy) Sort(_ context.Context, in []uint64) ([]uint64, error) {
	return countsort.ParallelSort(in)
}

type deviceStrategy struct {
	handle *DeviceHandle
}

// NewDevice returns the device-offloaded strategy. The device behind
// handle is initialized on the first trial.
func NewDevice(handle *DeviceHandle) Strategy {
	return deviceStrategy{handle: handle}
}

func (deviceStrategy) ID() ID { return Device }

// Sort determines the value range on the host and delegates the three
// phases to the accelerator, which returns only after the result has
// been read back from the device.
func (s deviceStrategy) Sort(ctx context.Context, in []uint64) ([]uint64, error) {
	svc, err := s.handle.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	max, ok := countsort.Max(in)
	if !ok {
		return []uint64{}, nil
	}
	return svc.RunCountingSort(ctx, in, max)
}
