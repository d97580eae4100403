package main

import (
	"fmt"
	"sort"

	"github.com/banshee-data/rcss.agent/internal/recorder"
	"gonum.org/v1/gonum/stat"
)

// timeline is a session's decisions in order, with anomalies pinned to the
// decision index at or before their game time.
type timeline struct {
	Labels    []string
	ElapsedMS []float64
	Acted     []bool
	Anomalies map[string][]int // kind -> decision indexes
}

type summary struct {
	Decisions int
	Acted     int
	MeanMS    float64
	StdDevMS  float64
	Anomalies map[string]int
}

func timeKey(cycle, stopped int64) string {
	return fmt.Sprintf("%d.%d", cycle, stopped)
}

func before(ac, as, bc, bs int64) bool {
	if ac != bc {
		return ac < bc
	}
	return as < bs
}

func buildTimeline(decisions []recorder.DecisionRow, anomalies []recorder.AnomalyRow) timeline {
	tl := timeline{
		Labels:    make([]string, len(decisions)),
		ElapsedMS: make([]float64, len(decisions)),
		Acted:     make([]bool, len(decisions)),
		Anomalies: make(map[string][]int),
	}
	for i, d := range decisions {
		tl.Labels[i] = timeKey(d.Cycle, d.Stopped)
		tl.ElapsedMS[i] = float64(d.ElapsedMS)
		tl.Acted[i] = d.Acted
	}
	for _, a := range anomalies {
		// first decision strictly after the anomaly, minus one
		j := sort.Search(len(decisions), func(k int) bool {
			return before(a.Cycle, a.Stopped, decisions[k].Cycle, decisions[k].Stopped)
		})
		idx := j - 1
		if idx < 0 {
			idx = 0
		}
		if len(decisions) == 0 {
			continue
		}
		tl.Anomalies[a.Kind] = append(tl.Anomalies[a.Kind], idx)
	}
	return tl
}

func (tl timeline) summarize() summary {
	s := summary{Decisions: len(tl.ElapsedMS), Anomalies: make(map[string]int)}
	for _, a := range tl.Acted {
		if a {
			s.Acted++
		}
	}
	if len(tl.ElapsedMS) > 0 {
		s.MeanMS, s.StdDevMS = stat.MeanStdDev(tl.ElapsedMS, nil)
	}
	for kind, idx := range tl.Anomalies {
		s.Anomalies[kind] = len(idx)
	}
	return s
}

func sortedKinds(m map[string][]int) []string {
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
