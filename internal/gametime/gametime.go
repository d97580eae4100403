// Package gametime holds the simulator's logical clock value.
//
// A Time is a (cycle, stopped) pair. Cycle is the server's simulation step
// counter; Stopped counts repeated proprioceptive reports received while the
// server clock is paused (before kick-off, after a goal, during set plays
// in some server versions). Times are ordered lexicographically.
package gametime

import "fmt"

// Time is the logical game time.
type Time struct {
	Cycle   int64
	Stopped int64
}

// New returns the time (cycle, stopped).
func New(cycle, stopped int64) Time {
	return Time{Cycle: cycle, Stopped: stopped}
}

// Compare returns -1, 0 or +1 depending on whether t sorts before, equal to,
// or after u.
func (t Time) Compare(u Time) int {
	switch {
	case t.Cycle < u.Cycle:
		return -1
	case t.Cycle > u.Cycle:
		return 1
	case t.Stopped < u.Stopped:
		return -1
	case t.Stopped > u.Stopped:
		return 1
	}
	return 0
}

// Before reports whether t sorts strictly before u.
func (t Time) Before(u Time) bool { return t.Compare(u) < 0 }

// After reports whether t sorts strictly after u.
func (t Time) After(u Time) bool { return t.Compare(u) > 0 }

// IsZero reports whether t is the zero time (0, 0).
func (t Time) IsZero() bool { return t.Cycle == 0 && t.Stopped == 0 }

// NextStopped returns the time one stopped-step after t.
func (t Time) NextStopped() Time {
	return Time{Cycle: t.Cycle, Stopped: t.Stopped + 1}
}

func (t Time) String() string {
	return fmt.Sprintf("[%d, %d]", t.Cycle, t.Stopped)
}
