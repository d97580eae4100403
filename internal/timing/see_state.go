package timing

import (
	"time"

	"github.com/banshee-data/rcss.agent/internal/gametime"
	"github.com/banshee-data/rcss.agent/internal/monitoring"
)

// SyncStatus is what the Synchronizer needs to know about the server's
// synchronization regime.
type SyncStatus interface {
	// IsFullySynchronized reports server-driven synchronous mode, where the
	// server waits for every client before advancing.
	IsFullySynchronized() bool
	// IsPartiallySynchronized reports that the visual stream is phase-locked
	// to the proprioceptive stream, so arrival times are predictable.
	IsPartiallySynchronized() bool
	// CyclesUntilNextObservation is the number of cycles before the next
	// visual report is due. Zero means one is due in the current cycle.
	CyclesUntilNextObservation() int
	// CoincidentRunDetected reports a run of consecutive visual reports
	// arriving together with the self report.
	CoincidentRunDetected() bool
	// MarkSynchronized records that synchronization has been confirmed.
	MarkSynchronized()
	// ViewMode is the view mode last reported by the server.
	ViewMode() ViewMode
}

// ViewSink accepts view-mode change requests.
type ViewSink interface {
	ChangeView(mode ViewMode) error
}

// SeeState follows the phase of the visual stream relative to the
// proprioceptive stream.
type SeeState struct {
	params Params
	logf   func(format string, v ...interface{})

	view    ViewMode
	synched bool

	selfReportTime gametime.Time
	selfReportAt   time.Time
	visualTime     gametime.Time
	haveVisual     bool

	coincidentRun int // consecutive coincident visual reports while unsynchronized
	missRun       int // consecutive late visual reports while synchronized

	arrivals *ArrivalStats
}

// arrivalWindow is the number of offsets kept for drift diagnostics.
const arrivalWindow = 64

// NewSeeState returns a SeeState in the server's default view mode.
func NewSeeState(params Params) *SeeState {
	return &SeeState{
		params:   params,
		logf:     monitoring.Tagged("see"),
		view:     PreferredView,
		arrivals: NewArrivalStats(arrivalWindow),
	}
}

// SetParams replaces the timing parameters, e.g. after server_param.
func (s *SeeState) SetParams(p Params) { s.params = p }

// OnSelfReport records a proprioceptive report for time t arriving at at,
// carrying the server's current view mode.
func (s *SeeState) OnSelfReport(t gametime.Time, at time.Time, mode ViewMode) {
	s.selfReportTime = t
	s.selfReportAt = at
	if mode != s.view {
		s.view = mode
	}
}

// OnVisual records a visual report for time t arriving at at.
func (s *SeeState) OnVisual(t gametime.Time, at time.Time) {
	s.visualTime = t
	s.haveVisual = true

	if s.selfReportAt.IsZero() || t.Cycle != s.selfReportTime.Cycle {
		s.coincidentRun = 0
		return
	}

	offset := at.Sub(s.selfReportAt).Milliseconds()
	s.arrivals.Add(float64(offset))

	window := int64(s.params.SynchArrivalWindowMS)
	coincident := offset >= 0 && offset <= window

	if !s.synched {
		if coincident {
			s.coincidentRun++
		} else {
			s.coincidentRun = 0
		}
		return
	}

	// Once synchronized, the visual report is expected at the fixed
	// offset. Repeated late arrivals mean the phase has been lost.
	expected := int64(s.params.SynchSeeOffsetMS)
	if offset > expected+window {
		s.missRun++
		if s.missRun >= s.params.SynchRequiredCount {
			s.logf("visual synchronization lost at %s: offset %dms, expected <= %dms",
				t, offset, expected+window)
			s.synched = false
			s.missRun = 0
			s.coincidentRun = 0
		}
		return
	}
	s.missRun = 0
}

// IsFullySynchronized reports the server's synch_mode.
func (s *SeeState) IsFullySynchronized() bool { return s.params.SynchMode }

// IsPartiallySynchronized reports a confirmed visual phase lock.
func (s *SeeState) IsPartiallySynchronized() bool { return s.synched }

// CyclesUntilNextObservation counts the cycles from the last self report to
// the next visual report due under the current view mode.
func (s *SeeState) CyclesUntilNextObservation() int {
	if !s.synched || !s.haveVisual {
		return 0
	}
	n := s.visualTime.Cycle + int64(s.view.PeriodCycles()) - s.selfReportTime.Cycle
	if n < 0 {
		return 0
	}
	return int(n)
}

// CoincidentRunDetected reports SynchRequiredCount consecutive coincident
// arrivals.
func (s *SeeState) CoincidentRunDetected() bool {
	return s.coincidentRun >= s.params.SynchRequiredCount
}

// MarkSynchronized confirms the phase lock.
func (s *SeeState) MarkSynchronized() {
	s.synched = true
	s.coincidentRun = 0
	s.missRun = 0
}

// ViewMode returns the view mode last reported by the server.
func (s *SeeState) ViewMode() ViewMode { return s.view }

// ArrivalSummary summarizes recent visual-report offsets.
func (s *SeeState) ArrivalSummary() ArrivalSummary { return s.arrivals.Summary() }
