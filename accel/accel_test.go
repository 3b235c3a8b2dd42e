package accel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rand"

	"github.com/exascience/countbench/countsort"
	"github.com/exascience/countbench/internal"
)

func randomKeys(n int, bound uint64) []uint64 {
	r := rand.New(7)
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = r.Uint64n(bound)
	}
	return keys
}

func newInitialized(t *testing.T, opts Options) *Emulator {
	t.Helper()
	e := NewEmulator(opts)
	require.NoError(t, e.Initialize(context.Background()))
	t.Cleanup(func() { assert.NoError(t, e.Shutdown()) })
	return e
}

func TestEmulatorRunCountingSort(t *testing.T) {
	e := newInitialized(t, Options{ComputeUnits: 4})
	ctx := context.Background()

	for _, n := range []int{1, 2, 255, 256, 257, 10000, 1 << 18} {
		in := randomKeys(n, 1000)
		max, _ := countsort.Max(in)
		got, err := e.RunCountingSort(ctx, in, max)
		require.NoError(t, err, "size %d", n)
		want, err := countsort.Sort(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "size %d", n)
	}
}

func TestEmulatorScenario(t *testing.T) {
	e := newInitialized(t, Options{})
	got, err := e.RunCountingSort(context.Background(), []uint64{5, 3, 3, 0, 2}, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 2, 3, 3, 5}, got)
}

func TestEmulatorEmptyInput(t *testing.T) {
	e := newInitialized(t, Options{})
	got, err := e.RunCountingSort(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmulatorNotInitialized(t *testing.T) {
	e := NewEmulator(Options{})
	_, err := e.RunCountingSort(context.Background(), []uint64{1}, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, e.Initialize(context.Background()))
	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())
	_, err = e.RunCountingSort(context.Background(), []uint64{1}, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestEmulatorUnavailable(t *testing.T) {
	e := NewEmulator(Options{ComputeUnits: -1})
	assert.ErrorIs(t, e.Initialize(context.Background()), ErrDeviceUnavailable)
}

func TestEmulatorBusy(t *testing.T) {
	e := newInitialized(t, Options{AcquireTimeout: 10 * time.Millisecond})

	e.owner <- struct{}{}
	start := time.Now()
	_, err := e.RunCountingSort(context.Background(), []uint64{3, 1}, 3)
	<-e.owner

	assert.ErrorIs(t, err, ErrDeviceBusy)
	assert.Less(t, time.Since(start), 5*time.Second)

	got, err := e.RunCountingSort(context.Background(), []uint64{3, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, got)
}

func TestEmulatorMemoryLimit(t *testing.T) {
	e := newInitialized(t, Options{MemoryLimit: 1024})
	_, err := e.RunCountingSort(context.Background(), randomKeys(1000, 10), 9)
	assert.ErrorIs(t, err, countsort.ErrResourceExhausted)

	got, err := e.RunCountingSort(context.Background(), []uint64{2, 1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2}, got)
}

func TestEmulatorHugeMax(t *testing.T) {
	e := newInitialized(t, Options{})
	_, err := e.RunCountingSort(context.Background(), []uint64{1 << 40}, 1<<40)
	assert.ErrorIs(t, err, countsort.ErrResourceExhausted)
}

func TestOpen(t *testing.T) {
	assert.Contains(t, Backends(), "emulated")
	assert.Contains(t, Backends(), "none")

	_, err := Open("opencl-on-a-toaster", Options{})
	assert.ErrorIs(t, err, ErrDeviceUnavailable)

	s, err := Open("none", Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Initialize(context.Background()), ErrDeviceUnavailable)
	assert.NoError(t, s.Shutdown())

	s, err = Open("emulated", Options{})
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	assert.NoError(t, s.Shutdown())
}

func TestCommandQueueSkipsAfterError(t *testing.T) {
	q := newCommandQueue(4)
	defer q.release()

	boom := errors.New("boom")
	ran := false
	q.enqueue(func() error { return boom })
	q.enqueue(func() error { ran = true; return nil })
	assert.ErrorIs(t, q.finish(), boom)
	assert.False(t, ran)

	q.enqueue(func() error { ran = true; return nil })
	assert.NoError(t, q.finish())
	assert.True(t, ran)
}

func TestKernelPanicBecomesError(t *testing.T) {
	k := &kernel{name: "faulty", fn: func([]any, int) { panic("out of bounds") }}
	err := ndRange(k, 512, 256, 2)()
	assert.ErrorIs(t, err, internal.ErrPanic)
}

func TestBuildProgramUnknownKernel(t *testing.T) {
	_, err := buildProgram("histogram", "bitonic")
	assert.Error(t, err)
}
