package timing

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ArrivalStats keeps a sliding window of visual-report arrival offsets
// (milliseconds after the same cycle's self report).
type ArrivalStats struct {
	window  int
	samples []float64
}

// ArrivalSummary describes the current window.
type ArrivalSummary struct {
	Count  int
	Mean   float64
	StdDev float64
	P90    float64
}

// NewArrivalStats returns a window holding at most window samples.
func NewArrivalStats(window int) *ArrivalStats {
	if window < 1 {
		window = 1
	}
	return &ArrivalStats{window: window, samples: make([]float64, 0, window)}
}

// Add records one offset, evicting the oldest when the window is full.
func (a *ArrivalStats) Add(offsetMS float64) {
	if len(a.samples) == a.window {
		copy(a.samples, a.samples[1:])
		a.samples = a.samples[:a.window-1]
	}
	a.samples = append(a.samples, offsetMS)
}

// Len returns the number of samples in the window.
func (a *ArrivalStats) Len() int { return len(a.samples) }

// Summary returns mean, standard deviation and 90th percentile of the window.
func (a *ArrivalStats) Summary() ArrivalSummary {
	n := len(a.samples)
	if n == 0 {
		return ArrivalSummary{}
	}
	sorted := make([]float64, n)
	copy(sorted, a.samples)
	sort.Float64s(sorted)

	s := ArrivalSummary{Count: n}
	if n == 1 {
		s.Mean = sorted[0]
	} else {
		s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	}
	s.P90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return s
}
