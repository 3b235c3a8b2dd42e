package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/countbench/bench"
)

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func TestSaveAndList(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	started := time.Unix(1700000000, 0)
	samples := []bench.Sample{
		{Size: 2, Mean: 10, StdDev: 0.5, Min: 9, Max: 11},
		{Size: 3, Mean: 12, StdDev: 1, Min: 11, Max: 14},
	}
	first, err := s.SaveRun(ctx, Run{
		Strategy: "sequential", Iterations: 50, Seed: 0, Bound: 1000,
		Started: started, Finished: started.Add(time.Second), Host: "linux/amd64",
	}, samples)
	require.NoError(t, err)
	second, err := s.SaveRun(ctx, Run{
		Strategy: "parallel", Iterations: 5, Seed: 1<<63 + 1, Bound: 10,
		Started: started, Finished: started,
	}, nil)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, uint64(1<<63+1), runs[0].Seed)
	assert.Equal(t, "sequential", runs[1].Strategy)
	assert.True(t, runs[1].Started.Equal(started))
	assert.True(t, runs[1].Finished.Equal(started.Add(time.Second)))

	got, err := s.Samples(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, samples, got)

	got, err = s.Samples(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSamplesUnknownRun(t *testing.T) {
	_, err := open(t).Samples(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRunRollsBack(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	dup := []bench.Sample{{Size: 2}, {Size: 2}}
	_, err := s.SaveRun(ctx, Run{Strategy: "device"}, dup)
	require.Error(t, err)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpenPathWithURICharacters(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "odd?name#dir")
	require.NoError(t, os.Mkdir(dir, 0o755))
	path := filepath.Join(dir, "runs 1.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, Run{Strategy: "sequential"}, []bench.Sample{{Size: 2, Mean: 1}})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, path)

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/a%3Fb.db?_busy_timeout=5000&_foreign_keys=on", dsn("/tmp/a?b.db"))
	assert.Equal(t, "file:runs.db?_busy_timeout=5000&_foreign_keys=on", dsn("runs.db"))
}
