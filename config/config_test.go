package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/countbench/accel"
	"github.com/exascience/countbench/bench"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, bench.DefaultIterations, c.Iterations)
	assert.Equal(t, uint64(bench.DefaultBound), c.Bound)
	assert.Equal(t, "emulated", c.Device.Backend)
	assert.Equal(t, accel.DefaultAcquireTimeout, c.Device.AcquireTimeout)
	assert.Equal(t, "info", c.Log.Level)
	assert.Empty(t, c.Store.Path)
	assert.Equal(t, bench.DefaultSweep(), c.Sweep())
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
iterations: 7
sweep_limit: 1000
device:
  backend: none
  acquire_timeout: 2s
log:
  format: json
`), 0o644))
	t.Setenv("COUNTBENCH_ITERATIONS", "9")
	t.Setenv("COUNTBENCH_DEVICE_COMPUTE_UNITS", "3")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.Int("iterations", 0, "")
	require.NoError(t, flags.Parse([]string{"--log-level=debug"}))

	c, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 9, c.Iterations, "environment overrides file")
	assert.Equal(t, "debug", c.Log.Level, "flag overrides default")
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, "none", c.Device.Backend)
	assert.Equal(t, 3, c.Device.ComputeUnits)
	assert.Equal(t, 2*time.Second, c.Device.AcquireTimeout)
	assert.Equal(t, bench.SweepUpTo(1000), c.Sweep())
}

func TestLoadSizes(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.IntSlice("sizes", nil, "")
	require.NoError(t, flags.Parse([]string{"--sizes=2,3,5"}))
	c, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, bench.Sweep{2, 3, 5}, c.Sweep())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c, err := Load("", nil)
	require.NoError(t, err)

	bad := c
	bad.Iterations = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalid)

	bad = c
	bad.Sizes = []int{3, 2}
	assert.ErrorIs(t, bad.Validate(), ErrInvalid)

	bad = c
	bad.Log.Level = "loud"
	assert.ErrorIs(t, bad.Validate(), ErrInvalid)

	bad = c
	bad.Log.Format = "xml"
	assert.ErrorIs(t, bad.Validate(), ErrInvalid)

	bad = c
	bad.Device.AcquireTimeout = -time.Second
	assert.ErrorIs(t, bad.Validate(), ErrInvalid)
}

func TestNewLogger(t *testing.T) {
	c, err := Load("", nil)
	require.NoError(t, err)
	c.Log.Format = "json"
	c.Log.Level = "warn"

	var buf bytes.Buffer
	log, err := c.NewLogger(&buf)
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestSessionOptions(t *testing.T) {
	c, err := Load("", nil)
	require.NoError(t, err)
	c.Sizes = []int{4, 8}
	s, err := bench.NewSession(c.SessionOptions()...)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, bench.Sweep{4, 8}, s.Sweep())
}
