package timing

import (
	"testing"
	"time"

	"github.com/banshee-data/rcss.agent/internal/gametime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// feedCycle delivers a self report at cycle c and, when visualOffset >= 0, a
// visual report visualOffset ms later.
func feedCycle(s *SeeState, c int64, mode ViewMode, visualOffset time.Duration) {
	at := epoch.Add(time.Duration(c) * 100 * time.Millisecond)
	s.OnSelfReport(gametime.New(c, 0), at, mode)
	if visualOffset >= 0 {
		s.OnVisual(gametime.New(c, 0), at.Add(visualOffset))
	}
}

func TestSeeState_CoincidentRun(t *testing.T) {
	muteLogs(t)
	s := NewSeeState(DefaultParams())

	feedCycle(s, 1, AcquireView, 3*time.Millisecond)
	feedCycle(s, 2, AcquireView, 40*time.Millisecond) // breaks the run
	assert.False(t, s.CoincidentRunDetected())

	feedCycle(s, 3, AcquireView, 0)
	feedCycle(s, 4, AcquireView, 5*time.Millisecond)
	assert.False(t, s.CoincidentRunDetected())
	feedCycle(s, 5, AcquireView, 10*time.Millisecond)
	assert.True(t, s.CoincidentRunDetected())

	s.MarkSynchronized()
	assert.True(t, s.IsPartiallySynchronized())
	assert.False(t, s.CoincidentRunDetected())
	assert.False(t, s.IsFullySynchronized())
}

func TestSeeState_VisualFromOtherCycleResetsRun(t *testing.T) {
	muteLogs(t)
	s := NewSeeState(DefaultParams())
	feedCycle(s, 1, AcquireView, 0)
	feedCycle(s, 2, AcquireView, 0)

	// A visual report stamped with the previous cycle.
	s.OnVisual(gametime.New(1, 0), epoch.Add(201*time.Millisecond))
	feedCycle(s, 3, AcquireView, 0)
	assert.False(t, s.CoincidentRunDetected())
}

func TestSeeState_CyclesUntilNextObservation(t *testing.T) {
	muteLogs(t)
	s := NewSeeState(DefaultParams())
	assert.Equal(t, 0, s.CyclesUntilNextObservation(), "unsynchronized")

	s.MarkSynchronized()
	feedCycle(s, 10, PreferredView, 0)
	assert.Equal(t, 2, s.CyclesUntilNextObservation())

	feedCycle(s, 11, PreferredView, -1)
	assert.Equal(t, 1, s.CyclesUntilNextObservation())

	feedCycle(s, 12, PreferredView, -1)
	assert.Equal(t, 0, s.CyclesUntilNextObservation())

	wide := ViewMode{Width: ViewWide, Quality: QualityHigh}
	feedCycle(s, 13, wide, -1)
	assert.Equal(t, wide, s.ViewMode())
	// Last visual at 10, wide period 3.
	assert.Equal(t, 0, s.CyclesUntilNextObservation())
}

func TestSeeState_LosesSynchronization(t *testing.T) {
	muteLogs(t)
	s := NewSeeState(DefaultParams())
	s.MarkSynchronized()

	feedCycle(s, 1, PreferredView, 50*time.Millisecond)
	feedCycle(s, 3, PreferredView, 50*time.Millisecond)
	require.True(t, s.IsPartiallySynchronized())
	feedCycle(s, 5, PreferredView, 50*time.Millisecond)
	assert.False(t, s.IsPartiallySynchronized())
}

func TestSeeState_OnTimeArrivalsKeepSynchronization(t *testing.T) {
	muteLogs(t)
	s := NewSeeState(DefaultParams())
	s.MarkSynchronized()

	feedCycle(s, 1, PreferredView, 50*time.Millisecond)
	feedCycle(s, 3, PreferredView, 50*time.Millisecond)
	feedCycle(s, 5, PreferredView, 2*time.Millisecond)
	feedCycle(s, 7, PreferredView, 50*time.Millisecond)
	feedCycle(s, 9, PreferredView, 50*time.Millisecond)
	assert.True(t, s.IsPartiallySynchronized())

	sum := s.ArrivalSummary()
	assert.Equal(t, 5, sum.Count)
	assert.InDelta(t, 40.4, sum.Mean, 1e-9)
}

func TestArrivalStats(t *testing.T) {
	a := NewArrivalStats(4)
	assert.Equal(t, ArrivalSummary{}, a.Summary())

	a.Add(10)
	sum := a.Summary()
	assert.Equal(t, 1, sum.Count)
	assert.Equal(t, 10.0, sum.Mean)
	assert.Equal(t, 0.0, sum.StdDev)

	for _, v := range []float64{20, 30, 40, 50} {
		a.Add(v)
	}
	// 10 has been evicted.
	assert.Equal(t, 4, a.Len())
	sum = a.Summary()
	assert.InDelta(t, 35.0, sum.Mean, 1e-9)
	assert.Greater(t, sum.StdDev, 0.0)
	assert.Equal(t, 50.0, sum.P90)
}

func TestParamsFromDefaults(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 100*time.Millisecond, p.SimulatorStep)
	assert.Equal(t, 1.0, p.SlowDownFactor)
	assert.Equal(t, 79, p.WaitTimeThrSynchViewMS)
	assert.Equal(t, 75, p.WaitTimeThrNoSynchViewMS)
	assert.Equal(t, 3, p.SynchRequiredCount)
}

func TestViewMode(t *testing.T) {
	assert.Equal(t, 1, AcquireView.PeriodCycles())
	assert.Equal(t, 2, PreferredView.PeriodCycles())
	assert.Equal(t, "narrow low", AcquireView.String())

	w, ok := ParseViewWidth("wide")
	require.True(t, ok)
	assert.Equal(t, ViewWide, w)
	_, ok = ParseViewWidth("tele")
	assert.False(t, ok)

	q, ok := ParseViewQuality("low")
	require.True(t, ok)
	assert.Equal(t, QualityLow, q)
}
