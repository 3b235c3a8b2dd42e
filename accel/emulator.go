package accel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/exascience/countbench/countsort"
)

// EmulatorName is the device name the emulated backend reports.
const EmulatorName = "countbench emulated device"

// An Emulator is a Service that runs the counting sort kernels on host
// goroutines. It keeps the structure of a real device: a long-lived
// context with one in-order command queue, a program whose kernels are
// built once, device buffers that are distinct from host memory, and
// explicit host-to-device and device-to-host transfers.
type Emulator struct {
	opts Options
	log  *zap.Logger

	// owner is a one-slot semaphore for exclusive use of the queue.
	owner chan struct{}

	mu      sync.Mutex
	queue   *commandQueue
	program *program
	used    int64
}

// NewEmulator returns an uninitialized emulated device.
func NewEmulator(opts Options) *Emulator {
	opts = opts.withDefaults()
	return &Emulator{
		opts:  opts,
		log:   opts.Logger.Named("accel"),
		owner: make(chan struct{}, 1),
	}
}

// Initialize creates the command queue and builds the program. It
// fails with ErrDeviceUnavailable if the emulator is configured with a
// negative number of compute units. Initializing twice is a no-op.
func (e *Emulator) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue != nil {
		return nil
	}
	if e.opts.ComputeUnits < 0 {
		return fmt.Errorf("%w: %d compute units", ErrDeviceUnavailable, e.opts.ComputeUnits)
	}
	if e.opts.ComputeUnits == 0 {
		e.opts.ComputeUnits = runtime.GOMAXPROCS(0)
	}
	p, err := buildProgram("histogram", "prefix_sum", "scatter")
	if err != nil {
		return err
	}
	e.program = p
	e.queue = newCommandQueue(16)
	e.log.Info("device initialized, kernels built",
		zap.String("device", EmulatorName),
		zap.Int("compute_units", e.opts.ComputeUnits),
		zap.Int("max_work_group_size", e.opts.WorkGroupSize),
		zap.Int64("memory_limit", e.opts.MemoryLimit),
	)
	return nil
}

// Shutdown waits for a running sort to complete, then drains and
// releases the command queue and the program.
func (e *Emulator) Shutdown() error {
	e.owner <- struct{}{}
	defer func() { <-e.owner }()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue == nil {
		return nil
	}
	e.queue.release()
	e.queue, e.program = nil, nil
	e.log.Info("device released", zap.String("device", EmulatorName))
	return nil
}

// acquire takes exclusive ownership of the command queue, waiting at
// most the acquire timeout.
func (e *Emulator) acquire(ctx context.Context) (release func(), err error) {
	timer := time.NewTimer(e.opts.AcquireTimeout)
	defer timer.Stop()
	select {
	case e.owner <- struct{}{}:
		return func() { <-e.owner }, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: queue not acquired within %v", ErrDeviceBusy, e.opts.AcquireTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Emulator) state() (*commandQueue, *program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue == nil {
		return nil, nil, ErrNotInitialized
	}
	return e.queue, e.program, nil
}

// createBuffer allocates n words of device memory, optionally copying
// host data into it.
func (e *Emulator) createBuffer(n int, host []uint64) (*buffer, error) {
	bytes := int64(n) * 8
	e.mu.Lock()
	if limit := e.opts.MemoryLimit; limit > 0 && e.used+bytes > limit {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: device buffer of %d bytes exceeds memory limit", countsort.ErrResourceExhausted, bytes)
	}
	e.used += bytes
	e.mu.Unlock()
	b := &buffer{data: make([]uint64, n)}
	copy(b.data, host)
	return b, nil
}

func (e *Emulator) releaseBuffers(bufs ...*buffer) {
	var bytes int64
	for _, b := range bufs {
		if b != nil {
			bytes += int64(len(b.data)) * 8
			b.data = nil
		}
	}
	e.mu.Lock()
	e.used -= bytes
	e.mu.Unlock()
}

// RunCountingSort implements Service.
func (e *Emulator) RunCountingSort(ctx context.Context, in []uint64, max uint64) ([]uint64, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	queue, prog, err := e.state()
	if err != nil {
		return nil, err
	}
	size := len(in)
	if size == 0 {
		return []uint64{}, nil
	}
	if max >= countsort.MaxHistogramLen {
		return nil, fmt.Errorf("%w: %d histogram counters", countsort.ErrResourceExhausted, max+1)
	}
	buckets := int(max) + 1

	var arrBuf, countBuf, outBuf *buffer
	defer func() { e.releaseBuffers(arrBuf, countBuf, outBuf) }()
	if arrBuf, err = e.createBuffer(size, in); err != nil {
		return nil, err
	}
	if countBuf, err = e.createBuffer(buckets, nil); err != nil {
		return nil, err
	}
	if outBuf, err = e.createBuffer(size, nil); err != nil {
		return nil, err
	}

	group, units := e.opts.WorkGroupSize, e.opts.ComputeUnits

	queue.enqueue(func() error {
		clear(countBuf.data)
		return nil
	})

	histogram := prog.kernel("histogram")
	histogram.setArg(0, arrBuf)
	histogram.setArg(1, countBuf)
	histogram.setArg(2, size)
	queue.enqueue(ndRange(histogram, roundUp(size, group), group, units))

	prefixSum := prog.kernel("prefix_sum")
	prefixSum.setArg(0, countBuf)
	prefixSum.setArg(1, buckets)
	queue.enqueue(ndRange(prefixSum, 1, group, units))

	scatter := prog.kernel("scatter")
	scatter.setArg(0, countBuf)
	scatter.setArg(1, outBuf)
	scatter.setArg(2, buckets)
	queue.enqueue(ndRange(scatter, roundUp(buckets, group), group, units))

	out := make([]uint64, size)
	queue.enqueue(func() error {
		copy(out, outBuf.data)
		return nil
	})
	if err := queue.finish(); err != nil {
		return nil, err
	}
	return out, nil
}
