package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoSession is returned when the database holds no sessions.
var ErrNoSession = errors.New("recorder: no session")

// DecisionRow is one recorded decision wake-up.
type DecisionRow struct {
	Cycle        int64
	Stopped      int64
	At           time.Time
	ElapsedMS    int64
	TimeoutCount int
	Acted        bool
	ViewMode     string
	PartialSync  bool
	FullSync     bool
}

// AnomalyRow is one recorded timing anomaly.
type AnomalyRow struct {
	Cycle   int64
	Stopped int64
	Kind    string
	Detail  string
}

// TrackingRow summarises one tracker run.
type TrackingRow struct {
	Cycle       int64
	Stopped     int64
	Identity    int
	Unambiguous int
	Combination int
	Ambiguous   int
	Created     int
	Strategy    string
	MeanSq      float64
}

// Sessions lists sessions, oldest first.
func (r *Recorder) Sessions() ([]Session, error) {
	rows, err := r.db.Query(`SELECT session_id, team, started_ns FROM sessions ORDER BY started_ns, session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var ns int64
		if err := rows.Scan(&s.ID, &s.Team, &ns); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.StartedAt = time.Unix(0, ns).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestSession returns the most recently started session.
func (r *Recorder) LatestSession() (Session, error) {
	var s Session
	var ns int64
	err := r.db.QueryRow(`SELECT session_id, team, started_ns FROM sessions
		ORDER BY started_ns DESC, session_id DESC LIMIT 1`).Scan(&s.ID, &s.Team, &ns)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to query latest session: %w", err)
	}
	s.StartedAt = time.Unix(0, ns).UTC()
	return s, nil
}

// Decisions returns the session's decision rows in arrival order.
func (r *Recorder) Decisions(sessionID string) ([]DecisionRow, error) {
	rows, err := r.db.Query(`SELECT cycle, stopped, at_ns, elapsed_ms, timeout_count, acted,
		view_mode, partial_sync, full_sync FROM decisions WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRow
	for rows.Next() {
		var d DecisionRow
		var ns int64
		if err := rows.Scan(&d.Cycle, &d.Stopped, &ns, &d.ElapsedMS, &d.TimeoutCount, &d.Acted,
			&d.ViewMode, &d.PartialSync, &d.FullSync); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.At = time.Unix(0, ns).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// Anomalies returns the session's anomaly rows in arrival order.
func (r *Recorder) Anomalies(sessionID string) ([]AnomalyRow, error) {
	rows, err := r.db.Query(`SELECT cycle, stopped, kind, detail FROM anomalies
		WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var out []AnomalyRow
	for rows.Next() {
		var a AnomalyRow
		if err := rows.Scan(&a.Cycle, &a.Stopped, &a.Kind, &a.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// TrackingRows returns the session's tracking summaries in arrival order.
func (r *Recorder) TrackingRows(sessionID string) ([]TrackingRow, error) {
	rows, err := r.db.Query(`SELECT cycle, stopped, identity, unambiguous, combination, ambiguous,
		created, strategy, mean_sq FROM tracking WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking: %w", err)
	}
	defer rows.Close()

	var out []TrackingRow
	for rows.Next() {
		var t TrackingRow
		if err := rows.Scan(&t.Cycle, &t.Stopped, &t.Identity, &t.Unambiguous, &t.Combination,
			&t.Ambiguous, &t.Created, &t.Strategy, &t.MeanSq); err != nil {
			return nil, fmt.Errorf("failed to scan tracking: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
