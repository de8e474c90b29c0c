package stats

import (
	"bytes"
	"testing"
	"time"
)

func TestTotalAccounting(t *testing.T) {
	begin := Snapshot{UserTime: 10 * time.Second, MinFlt: 100, MaxRSS: 5000}
	current := Snapshot{UserTime: 25 * time.Second, MinFlt: 140, MaxRSS: 6000}
	restored := Snapshot{UserTime: 60 * time.Second, MinFlt: 9, MaxRSS: 9000}

	a := &Accumulator{Begin: begin, Current: current, Restored: restored}
	total := a.Total(nil)

	if want := 75 * time.Second; total.UserTime != want {
		t.Errorf("UserTime = %s, want %s", total.UserTime, want)
	}
	if want := int64(49); total.MinFlt != want {
		t.Errorf("MinFlt = %d, want %d", total.MinFlt, want)
	}
	if want := int64(9000); total.MaxRSS != want {
		t.Errorf("MaxRSS = %d, want %d (running max, not sum)", total.MaxRSS, want)
	}
}

func TestTotalClampsRegression(t *testing.T) {
	begin := Snapshot{UserTime: 30 * time.Second}
	current := Snapshot{UserTime: 10 * time.Second} // clock went backwards
	a := &Accumulator{Begin: begin, Current: current}

	var warnings bytes.Buffer
	total := a.Total(&warnings)

	if total.UserTime != 0 {
		t.Errorf("UserTime = %s, want 0 (clamped)", total.UserTime)
	}
	if warnings.Len() == 0 {
		t.Error("expected a warning to be reported for the clock regression")
	}
}

func TestCaptureReturnsNonNegativeCounters(t *testing.T) {
	s, err := Capture(time.Now())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if s.UserTime < 0 || s.SystemTime < 0 {
		t.Errorf("Capture returned negative cpu time: %+v", s)
	}
}
