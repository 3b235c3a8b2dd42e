package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/countbench/bench"
	"github.com/exascience/countbench/strategy"
)

func results() bench.Results {
	return bench.Results{
		Sizes: bench.Sweep{2, 3, 5},
		Series: map[strategy.ID][]int64{
			strategy.Sequential: {10, 11, 12},
			strategy.Device:     {40, 41},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results()))
	assert.Equal(t, "n,sequential,device\n2,10,40\n3,11,41\n5,12,N/A\n", buf.String())
}

func TestWriteCSVNoResults(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, bench.Results{Sizes: bench.Sweep{2, 3}})
	assert.ErrorIs(t, err, bench.ErrNoResults)
	assert.Zero(t, buf.Len())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	require.NoError(t, WriteFile(path, results()))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "n,sequential,device\n"))

	empty := filepath.Join(dir, "empty.csv")
	assert.ErrorIs(t, WriteFile(empty, bench.Results{}), bench.ErrNoResults)
	assert.NoFileExists(t, empty)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, results()))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"n", "sequential", "device"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"5", "12", "N/A"}, strings.Fields(lines[3]))
	assert.Equal(t, len(lines[0]), len(lines[3]))
}
