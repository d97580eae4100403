package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// Now set to nil and verify it doesn't call our logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()

	Logf("test message: %s", "value")
}

func TestTagged(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	logf := Tagged("timing")
	logf("cycle %d skipped", 42)

	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0] != "[timing] cycle 42 skipped" {
		t.Errorf("unexpected line %q", lines[0])
	}

	// Tagged loggers follow later SetLogger calls.
	SetLogger(nil)
	logf("muted")
	if len(lines) != 1 {
		t.Errorf("muted logger still wrote: %v", lines)
	}
}

func TestAnomalyCounts(t *testing.T) {
	c := NewAnomalyCounts()
	if c.Total() != 0 {
		t.Fatalf("new tally should be empty, got %d", c.Total())
	}
	c[AnomalyCycleSkip]++
	c[AnomalyCycleSkip]++
	c[AnomalyDrift]++
	if c.Total() != 3 {
		t.Errorf("Total() = %d, want 3", c.Total())
	}
	if c[AnomalyMissedDecision] != 0 {
		t.Errorf("unexpected missed decision count %d", c[AnomalyMissedDecision])
	}
}
