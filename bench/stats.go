package bench

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A Sample summarizes the trials of one strategy at one size. All
// values are in microseconds.
type Sample struct {
	Size   int
	Mean   int64
	StdDev float64
	Min    float64
	Max    float64
}

// summarize truncates every trial to whole microseconds and computes the
// integer mean of those, together with the spread of the trials.
func summarize(size int, trials []time.Duration) Sample {
	s := Sample{Size: size}
	if len(trials) == 0 {
		return s
	}
	micros := make([]float64, len(trials))
	var sum int64
	for i, d := range trials {
		us := d.Microseconds()
		sum += us
		micros[i] = float64(us)
	}
	s.Mean = sum / int64(len(trials))
	s.Min = floats.Min(micros)
	s.Max = floats.Max(micros)
	if len(micros) > 1 {
		s.StdDev = stat.StdDev(micros, nil)
	}
	return s
}
