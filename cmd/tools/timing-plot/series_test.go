package main

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/rcss.agent/internal/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decisionRows() []recorder.DecisionRow {
	return []recorder.DecisionRow{
		{Cycle: 0, Stopped: 1, ElapsedMS: 0, Acted: true},
		{Cycle: 1, Stopped: 0, ElapsedMS: 20, Acted: true},
		{Cycle: 2, Stopped: 0, ElapsedMS: 40, Acted: false},
		{Cycle: 3, Stopped: 0, ElapsedMS: 60, Acted: true},
	}
}

func TestBuildTimeline(t *testing.T) {
	anomalies := []recorder.AnomalyRow{
		{Cycle: 2, Stopped: 0, Kind: "drift"},
		{Cycle: 2, Stopped: 5, Kind: "cycle_skip"},
		{Cycle: 0, Stopped: 0, Kind: "drift"},
		{Cycle: 9, Stopped: 0, Kind: "drift"},
	}
	tl := buildTimeline(decisionRows(), anomalies)

	assert.Equal(t, []string{"0.1", "1.0", "2.0", "3.0"}, tl.Labels)
	assert.Equal(t, []float64{0, 20, 40, 60}, tl.ElapsedMS)
	assert.Equal(t, []int{2, 0, 3}, tl.Anomalies["drift"])
	assert.Equal(t, []int{2}, tl.Anomalies["cycle_skip"])
	assert.Equal(t, []string{"cycle_skip", "drift"}, sortedKinds(tl.Anomalies))
}

func TestSummarize(t *testing.T) {
	s := buildTimeline(decisionRows(), nil).summarize()
	assert.Equal(t, 4, s.Decisions)
	assert.Equal(t, 3, s.Acted)
	assert.InDelta(t, 30.0, s.MeanMS, 1e-9)
	assert.InDelta(t, 25.819889, s.StdDevMS, 1e-6)
	assert.Empty(t, s.Anomalies)

	empty := buildTimeline(nil, []recorder.AnomalyRow{{Kind: "drift"}})
	assert.Empty(t, empty.Anomalies)
	assert.Zero(t, empty.summarize().MeanMS)
}

func TestSaveCharts(t *testing.T) {
	tl := buildTimeline(decisionRows(), []recorder.AnomalyRow{{Cycle: 1, Kind: "missed_decision"}})
	dir := t.TempDir()
	require.NoError(t, savePNG(tl, "s1", filepath.Join(dir, "timing.png")))
	require.NoError(t, saveHTML(tl, "s1", filepath.Join(dir, "timing.html")))
	assert.FileExists(t, filepath.Join(dir, "timing.png"))
	assert.FileExists(t, filepath.Join(dir, "timing.html"))
}
