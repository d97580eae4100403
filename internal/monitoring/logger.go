package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Tagged returns a logger that prefixes every line with "[tag] " and writes
// through whatever Logf is installed at call time.
func Tagged(tag string) func(format string, v ...interface{}) {
	prefix := "[" + tag + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}

// Anomaly names a class of non-fatal timing diagnostic.
type Anomaly string

const (
	AnomalyCycleSkip             Anomaly = "cycle_skip"              // new cycle != previous cycle + 1
	AnomalyMissedDecision        Anomaly = "missed_decision"         // no decision at the preceding cycle
	AnomalyStoppedMissedDecision Anomaly = "stopped_missed_decision" // no decision at the preceding stopped step
	AnomalyDrift                 Anomaly = "drift"                   // decision forced by the wait deadline
	AnomalyLateThink             Anomaly = "late_think"              // think arrived after synch_offset in full synchronization
)

// AnomalyCounts tallies anomalies by kind. The zero value is not usable; use
// NewAnomalyCounts.
type AnomalyCounts map[Anomaly]int

// NewAnomalyCounts returns an empty tally.
func NewAnomalyCounts() AnomalyCounts {
	return make(AnomalyCounts)
}

// Total returns the number of anomalies of every kind.
func (c AnomalyCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}
