package strategy

import (
	"fmt"
	"sync"

	"github.com/exascience/countbench/accel"
)

// A Set hands out one strategy per ID and owns the resources behind
// them.
type Set struct {
	device *DeviceHandle

	mu         sync.Mutex
	strategies map[ID]Strategy
}

// NewSet returns a set of the built-in strategies. The Device strategy
// uses device; if device is nil, the Device strategy is unavailable.
func NewSet(device *DeviceHandle) *Set {
	return &Set{device: device, strategies: make(map[ID]Strategy)}
}

// Override replaces the strategy for s.ID().
func (set *Set) Override(s Strategy) {
	set.mu.Lock()
	defer set.mu.Unlock()
	set.strategies[s.ID()] = s
}

// Get returns the strategy for id.
func (set *Set) Get(id ID) (Strategy, error) {
	set.mu.Lock()
	defer set.mu.Unlock()
	if s, ok := set.strategies[id]; ok {
		return s, nil
	}
	var s Strategy
	switch id {
	case Sequential:
		s = NewSequential()
	case Parallel:
		s = NewParallel()
	case Device:
		if set.device == nil {
			return nil, fmt.Errorf("%v strategy: %w", id, accel.ErrDeviceUnavailable)
		}
		s = NewDevice(set.device)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, id)
	}
	set.strategies[id] = s
	return s, nil
}

// Close releases the device, if any.
func (set *Set) Close() error {
	if set.device == nil {
		return nil
	}
	return set.device.Close()
}
