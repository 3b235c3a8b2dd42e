// Package export writes benchmark results as delimited text for
// plotting tools and as an aligned table for the terminal.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/exascience/countbench/bench"
	"github.com/exascience/countbench/strategy"
)

// Missing is written for a size that has no value in a series.
const Missing = "N/A"

// rows returns the header and the data rows of r. Only strategies with
// results get a column.
func rows(r bench.Results) ([]string, [][]string, error) {
	ids := r.Strategies()
	if len(ids) == 0 {
		return nil, nil, bench.ErrNoResults
	}
	header := append([]string{"n"}, lo.Map(ids, func(id strategy.ID, _ int) string {
		return id.String()
	})...)
	data := make([][]string, len(r.Sizes))
	for i, n := range r.Sizes {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(n))
		for _, id := range ids {
			series := r.Series[id]
			if i < len(series) {
				row = append(row, strconv.FormatInt(series[i], 10))
			} else {
				row = append(row, Missing)
			}
		}
		data[i] = row
	}
	return header, data, nil
}

// WriteCSV writes one row per size: the size followed by the mean
// microseconds of each strategy. If no strategy has results, nothing
// is written and bench.ErrNoResults is returned.
func WriteCSV(w io.Writer, r bench.Results) error {
	header, data, err := rows(r)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(data); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// WriteFile writes the results to the file at path with WriteCSV. The
// file is not created if there are no results.
func WriteFile(path string, r bench.Results) (err error) {
	if r.Empty() {
		return bench.ErrNoResults
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return WriteCSV(f, r)
}

// WriteTable writes the results as a right-aligned table.
func WriteTable(w io.Writer, r bench.Results) error {
	header, data, err := rows(r)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, row := range append([][]string{header}, data...) {
		for _, cell := range row {
			if _, err := fmt.Fprint(tw, cell, "\t"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(tw); err != nil {
			return err
		}
	}
	return tw.Flush()
}
