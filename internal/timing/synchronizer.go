package timing

import (
	"fmt"

	"github.com/banshee-data/rcss.agent/internal/gametime"
	"github.com/banshee-data/rcss.agent/internal/monitoring"
)

// UnknownUnum is the uniform number before the server has assigned one.
const UnknownUnum = 0

// AnomalyHook observes timing anomalies as they are logged.
type AnomalyHook func(kind monitoring.Anomaly, at gametime.Time, detail string)

// Synchronizer owns the agent's logical game time and the act/no-act decision.
type Synchronizer struct {
	params Params
	status SyncStatus
	sink   ViewSink
	logf   func(format string, v ...interface{})
	hook   AnomalyHook

	current       gametime.Time
	serverStopped bool

	lastDecision gametime.Time
	hasDecided   bool

	selfReportTime gametime.Time
	visualTime     gametime.Time
	haveVisual     bool
	selfUnum       int

	refereePending bool
	refereeTime    gametime.Time

	requestedView    ViewMode
	requestedAt      gametime.Time
	hasRequestedView bool

	anomalies monitoring.AnomalyCounts
}

// NewSynchronizer returns a Synchronizer at time (0, 0). sink may be nil, in
// which case acquisition requests are only logged.
func NewSynchronizer(params Params, status SyncStatus, sink ViewSink) *Synchronizer {
	return &Synchronizer{
		params:    params,
		status:    status,
		sink:      sink,
		logf:      monitoring.Tagged("timing"),
		selfUnum:  UnknownUnum,
		anomalies: monitoring.NewAnomalyCounts(),
	}
}

// SetParams replaces the timing parameters, e.g. after server_param.
func (s *Synchronizer) SetParams(p Params) { s.params = p }

// SetAnomalyHook installs a hook called for every logged anomaly.
func (s *Synchronizer) SetAnomalyHook(h AnomalyHook) { s.hook = h }

// Current returns the current game time.
func (s *Synchronizer) Current() gametime.Time { return s.current }

// LastDecision returns the time of the last decision and whether one has
// been taken this session.
func (s *Synchronizer) LastDecision() (gametime.Time, bool) { return s.lastDecision, s.hasDecided }

// ServerCycleStopped reports whether the server clock is believed paused.
func (s *Synchronizer) ServerCycleStopped() bool { return s.serverStopped }

// Anomalies returns the per-kind anomaly tally. The map is live; callers
// must not modify it.
func (s *Synchronizer) Anomalies() monitoring.AnomalyCounts { return s.anomalies }

// SetSelfUnum records the agent's uniform number once the server assigns it.
func (s *Synchronizer) SetSelfUnum(unum int) { s.selfUnum = unum }

// RecordSelfReport notes a proprioceptive report for the current time.
func (s *Synchronizer) RecordSelfReport() { s.selfReportTime = s.current }

// RecordVisual notes a visual report for the current time.
func (s *Synchronizer) RecordVisual() {
	s.visualTime = s.current
	s.haveVisual = true
}

// MarkDecision records that an action has been computed for the current time.
func (s *Synchronizer) MarkDecision() {
	s.lastDecision = s.current
	s.hasDecided = true
}

// NoteRefereeSignal records that a referee message was processed at the
// current time.
func (s *Synchronizer) NoteRefereeSignal() {
	s.refereePending = true
	s.refereeTime = s.current
}

func (s *Synchronizer) anomaly(kind monitoring.Anomaly, format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	s.anomalies[kind]++
	s.logf("%s", msg)
	if s.hook != nil {
		s.hook(kind, s.current, msg)
	}
}

// AdvanceTime moves the logical clock to newCycle. bySelfReport is true when
// the cycle number comes from a proprioceptive report, the only message
// trusted to confirm that a paused server has not advanced.
func (s *Synchronizer) AdvanceTime(newCycle int64, bySelfReport bool) gametime.Time {
	old := s.current

	if s.serverStopped {
		if newCycle == old.Cycle {
			if bySelfReport {
				s.current = old.NextStopped()
				// The first paused step follows a normal cycle, so a gap
				// there is expected.
				if old.Stopped > 0 && (!s.hasDecided || s.lastDecision != old) {
					s.anomaly(monitoring.AnomalyStoppedMissedDecision,
						"missed decision at %s before stopped time %s (last decision %s)",
						old, s.current, s.lastDecision)
				}
			}
			return s.current
		}

		s.current = gametime.New(newCycle, 0)
		if newCycle != old.Cycle+1 {
			s.anomaly(monitoring.AnomalyCycleSkip,
				"cycle jumped from %s to %s while stopped", old, s.current)
		}
		return s.current
	}

	s.current = gametime.New(newCycle, 0)
	if newCycle == old.Cycle {
		return s.current
	}
	if newCycle != old.Cycle+1 {
		s.anomaly(monitoring.AnomalyCycleSkip,
			"cycle skipped from %s to %s", old, s.current)
	}
	if s.hasDecided && s.lastDecision.Cycle != newCycle-1 {
		s.anomaly(monitoring.AnomalyMissedDecision,
			"no decision at cycle %d (last decision %s, now %s)",
			newCycle-1, s.lastDecision, s.current)
	}
	return s.current
}

// RefreshStoppedFlag clears the stopped flag once the cycle after a referee
// signal begins, then sets it again if the classified game mode is one in
// which the server clock does not run.
func (s *Synchronizer) RefreshStoppedFlag(stoppedMode bool) {
	if s.refereePending && s.current.Cycle != s.refereeTime.Cycle {
		s.serverStopped = false
		s.refereePending = false
	}
	if stoppedMode {
		s.serverStopped = true
	}
}

func (s *Synchronizer) waitThreshold() int {
	if s.status.IsPartiallySynchronized() {
		return s.params.WaitTimeThrSynchViewMS
	}
	return s.params.WaitTimeThrNoSynchViewMS
}

// ShouldActNow reports whether the agent should compute and send an action
// on this wake-up. elapsedMS is the time since the last proprioceptive
// report (negative before the first one); timeoutCount is the number of
// consecutive receive timeouts. The rules are evaluated in order and the
// first match wins.
func (s *Synchronizer) ShouldActNow(elapsedMS int64, timeoutCount int) bool {
	if s.status.IsFullySynchronized() {
		return false
	}
	if elapsedMS < 0 {
		return false
	}
	if s.hasDecided && s.lastDecision == s.current {
		return false
	}
	if s.selfUnum == UnknownUnum {
		return false
	}
	if s.haveVisual && s.visualTime == s.current {
		return true
	}
	// A referee message can wake us before this cycle's self report.
	if s.hasDecided && s.lastDecision == s.selfReportTime && timeoutCount <= 2 {
		return false
	}

	partial := s.status.IsPartiallySynchronized()
	waitThr := s.waitThreshold()
	if partial && s.params.SynchSeeOffsetMS > waitThr {
		return true
	}
	if partial && s.status.CyclesUntilNextObservation() > 0 {
		return true
	}

	deadline := float64(waitThr) * s.params.SlowDownFactor
	if float64(elapsedMS) >= deadline {
		within := float64(s.params.SynchSeeOffsetMS+s.params.SynchArrivalWindowMS) * s.params.SlowDownFactor
		if !(partial && float64(elapsedMS) <= within) {
			s.driftWarning(elapsedMS, deadline)
		}
		return true
	}
	return false
}

func (s *Synchronizer) driftWarning(elapsedMS int64, deadline float64) {
	if summarizer, ok := s.status.(interface{ ArrivalSummary() ArrivalSummary }); ok {
		sum := summarizer.ArrivalSummary()
		s.anomaly(monitoring.AnomalyDrift,
			"no visual report at %s after %dms (deadline %.0fms); recent offsets mean %.1fms sd %.1fms p90 %.1fms over %d",
			s.current, elapsedMS, deadline, sum.Mean, sum.StdDev, sum.P90, sum.Count)
		return
	}
	s.anomaly(monitoring.AnomalyDrift,
		"no visual report at %s after %dms (deadline %.0fms)", s.current, elapsedMS, deadline)
}

// NoteThink checks a full-synchronization think message against the
// server's synch_offset. elapsedMS is the time since the cycle's self
// report. It returns false, and logs a late-think anomaly, when the think
// arrived later than the offset plus the arrival window.
func (s *Synchronizer) NoteThink(elapsedMS int64) bool {
	if elapsedMS < 0 {
		return true
	}
	limit := float64(s.params.SynchOffsetMS+s.params.SynchArrivalWindowMS) * s.params.SlowDownFactor
	if float64(elapsedMS) <= limit {
		return true
	}
	s.anomaly(monitoring.AnomalyLateThink,
		"think at %s arrived %dms after the self report (synch_offset %dms)",
		s.current, elapsedMS, s.params.SynchOffsetMS)
	return false
}

// AttemptAcquireSync drives the view mode towards a synchronized visual
// stream. While unsynchronized and paused it requests AcquireView; during
// live play it may only request LiveAcquireView, never a quality downgrade.
// Once the status reports a run of coincident arrivals, synchronization is
// marked confirmed and PreferredView is restored. It returns true when a
// view change was requested.
func (s *Synchronizer) AttemptAcquireSync(playLive bool) bool {
	if s.status.IsFullySynchronized() || s.status.IsPartiallySynchronized() {
		return false
	}

	if s.status.CoincidentRunDetected() {
		s.status.MarkSynchronized()
		s.logf("visual report synchronized at %s", s.current)
		return s.requestView(PreferredView)
	}

	if playLive {
		return s.requestView(LiveAcquireView)
	}
	return s.requestView(AcquireView)
}

func (s *Synchronizer) requestView(mode ViewMode) bool {
	if s.status.ViewMode() == mode {
		return false
	}
	if s.hasRequestedView && s.requestedView == mode && s.requestedAt.Cycle == s.current.Cycle {
		return false
	}
	s.requestedView = mode
	s.requestedAt = s.current
	s.hasRequestedView = true

	if s.sink == nil {
		s.logf("view change to %s requested with no sink", mode)
		return true
	}
	if err := s.sink.ChangeView(mode); err != nil {
		s.logf("view change to %s failed: %v", mode, err)
	}
	return true
}
