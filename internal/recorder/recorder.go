package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/rcss.agent/internal/agent"
	"github.com/banshee-data/rcss.agent/internal/gametime"
	"github.com/banshee-data/rcss.agent/internal/monitoring"
	"github.com/banshee-data/rcss.agent/internal/perception"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Session identifies one agent run in the log.
type Session struct {
	ID        string
	Team      string
	StartedAt time.Time
}

// Recorder logs decision wake-ups, timing anomalies and tracking summaries
// to SQLite. Observer callbacks only buffer rows; Flush or Run writes them.
type Recorder struct {
	db   *sql.DB
	logf func(format string, v ...interface{})

	mu       sync.Mutex
	session  Session
	pending  []row
	dropped  int
	maxQueue int
}

type row struct {
	query string
	args  []any
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recorder database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	r := &Recorder{db: db, logf: monitoring.Tagged("recorder"), maxQueue: 100000}
	if err := r.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// DB returns the underlying handle.
func (r *Recorder) DB() *sql.DB { return r.db }

// StartSession creates a session row and directs subsequent rows to it.
func (r *Recorder) StartSession(team string, at time.Time) (Session, error) {
	s := Session{ID: uuid.NewString(), Team: team, StartedAt: at}
	if _, err := r.db.Exec(
		`INSERT INTO sessions (session_id, team, started_ns) VALUES (?, ?, ?)`,
		s.ID, s.Team, at.UnixNano(),
	); err != nil {
		return Session{}, fmt.Errorf("failed to insert session: %w", err)
	}
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
	r.logf("session %s started for %s", s.ID, team)
	return s, nil
}

// Session returns the active session.
func (r *Recorder) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *Recorder) enqueue(query string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.ID == "" {
		return
	}
	if len(r.pending) >= r.maxQueue {
		r.dropped++
		return
	}
	r.pending = append(r.pending, row{query: query, args: append([]any{r.session.ID}, args...)})
}

// Decision buffers one decision wake-up.
func (r *Recorder) Decision(d agent.Decision) {
	r.enqueue(`INSERT INTO decisions (session_id, cycle, stopped, at_ns, elapsed_ms, timeout_count,
		acted, view_mode, partial_sync, full_sync) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Time.Cycle, d.Time.Stopped, d.At.UnixNano(), d.ElapsedMS, d.TimeoutCount,
		d.Acted, d.View.String(), d.PartialSync, d.FullSync)
}

// Anomaly buffers one timing anomaly.
func (r *Recorder) Anomaly(kind monitoring.Anomaly, at gametime.Time, detail string) {
	r.enqueue(`INSERT INTO anomalies (session_id, cycle, stopped, kind, detail) VALUES (?, ?, ?, ?, ?)`,
		at.Cycle, at.Stopped, string(kind), detail)
}

// Tracking buffers a summary of one tracker run.
func (r *Recorder) Tracking(at gametime.Time, rep perception.Report) {
	r.enqueue(`INSERT INTO tracking (session_id, cycle, stopped, identity, unambiguous, combination,
		ambiguous, created, strategy, mean_sq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		at.Cycle, at.Stopped, rep.Count(perception.PhaseIdentity), rep.Count(perception.PhaseUnambiguous),
		rep.Count(perception.PhaseCombination), rep.Ambiguous, len(rep.Created), rep.Strategy, rep.Mean)
}

// Pending returns the number of buffered rows.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush writes every buffered row in one transaction.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	rows := r.pending
	r.pending = nil
	dropped := r.dropped
	r.dropped = 0
	r.mu.Unlock()

	if dropped > 0 {
		r.logf("dropped %d rows while the queue was full", dropped)
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, rw := range rows {
		if _, err := tx.Exec(rw.query, rw.args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %d rows: %w", len(rows), err)
	}
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("recorder: flush interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := r.Flush(); err != nil {
				r.logf("final flush: %v", err)
				return err
			}
			return nil
		case <-ticker.C:
			if err := r.Flush(); err != nil {
				r.logf("flush: %v", err)
			}
		}
	}
}

// Close flushes buffered rows and closes the database.
func (r *Recorder) Close() error {
	flushErr := r.Flush()
	if err := r.db.Close(); err != nil {
		return err
	}
	return flushErr
}

var _ agent.Observer = (*Recorder)(nil)
