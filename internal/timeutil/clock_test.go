package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if !clock.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", clock.Now(), start)
	}

	clock.Advance(75 * time.Millisecond)
	if got := clock.Since(start); got != 75*time.Millisecond {
		t.Errorf("Since() = %v, want 75ms", got)
	}

	later := start.Add(time.Hour)
	clock.Set(later)
	if !clock.Now().Equal(later) {
		t.Errorf("Set() did not take effect: %v", clock.Now())
	}
}

func TestElapsedMillis(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		since time.Time
		want  int64
	}{
		{"nothing received", time.Time{}, -1},
		{"same instant", now, 0},
		{"truncates", now.Add(-75*time.Millisecond - 900*time.Microsecond), 75},
		{"seconds", now.Add(-2 * time.Second), 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElapsedMillis(tt.since, now); got != tt.want {
				t.Errorf("ElapsedMillis() = %d, want %d", got, tt.want)
			}
		})
	}
}
