package accel

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/exascience/countbench/internal"
)

// A buffer is device memory. Kernels only ever see buffers, never host
// slices.
type buffer struct {
	data []uint64
}

// A kernelFunc is the body of a kernel, invoked once per work item
// with its global id.
type kernelFunc func(args []any, gid int)

// A kernel is a compiled kernel with its argument slots.
type kernel struct {
	name string
	fn   kernelFunc
	args []any
}

func (k *kernel) setArg(index int, value any) {
	if index >= len(k.args) {
		panic(fmt.Sprintf("kernel %s: argument index %d out of range", k.name, index))
	}
	k.args[index] = value
}

// kernelSource lists the kernels of the counting sort program with
// their arity.
var kernelSource = map[string]struct {
	arity int
	fn    kernelFunc
}{
	// histogram(arr, count, size)
	"histogram": {3, func(args []any, i int) {
		arr, count, size := args[0].(*buffer).data, args[1].(*buffer).data, args[2].(int)
		if i < size {
			atomic.AddUint64(&count[arr[i]], 1)
		}
	}},
	// prefix_sum(count, buckets) runs as a single work item; every
	// counter depends on its predecessor.
	"prefix_sum": {2, func(args []any, i int) {
		count, buckets := args[0].(*buffer).data, args[1].(int)
		if i == 0 {
			for v := 1; v < buckets; v++ {
				count[v] += count[v-1]
			}
		}
	}},
	// scatter(count, output, buckets) fills the output range of one
	// bucket per work item.
	"scatter": {3, func(args []any, v int) {
		count, output, buckets := args[0].(*buffer).data, args[1].(*buffer).data, args[2].(int)
		if v < buckets {
			var start uint64
			if v > 0 {
				start = count[v-1]
			}
			fill := output[start:count[v]]
			for j := range fill {
				fill[j] = uint64(v)
			}
		}
	}},
}

// A program is the set of kernels built for a device.
type program struct {
	kernels map[string]*kernel
}

func buildProgram(names ...string) (*program, error) {
	p := &program{kernels: make(map[string]*kernel, len(names))}
	for _, name := range names {
		src, ok := kernelSource[name]
		if !ok {
			return nil, fmt.Errorf("accel: build program: no kernel named %q", name)
		}
		p.kernels[name] = &kernel{name: name, fn: src.fn, args: make([]any, src.arity)}
	}
	return p, nil
}

func (p *program) kernel(name string) *kernel {
	return p.kernels[name]
}

// roundUp rounds n up to a multiple of the work group size, as global
// sizes must be.
func roundUp(n, groupSize int) int {
	return (n + groupSize - 1) / groupSize * groupSize
}

// ndRange returns a command that runs k over globalSize work items,
// groupSize items per work group, with at most units work groups in
// flight. The kernel arguments are captured when the command is
// created.
func ndRange(k *kernel, globalSize, groupSize, units int) command {
	args := append([]any(nil), k.args...)
	fn, name := k.fn, k.name
	return func() error {
		var g errgroup.Group
		g.SetLimit(units)
		for low := 0; low < globalSize; low += groupSize {
			low, high := low, min(low+groupSize, globalSize)
			g.Go(func() (err error) {
				defer func() {
					if p := recover(); p != nil {
						err = fmt.Errorf("kernel %s: %w", name, internal.PanicError(p))
					}
				}()
				for gid := low; gid < high; gid++ {
					fn(args, gid)
				}
				return nil
			})
		}
		return g.Wait()
	}
}
