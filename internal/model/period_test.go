package model

import (
	"testing"
	"time"
)

func TestPeriodStart_SameWindow(t *testing.T) {
	a := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	b := a.Add(72 * time.Hour) // three days later

	if !PeriodStart(a).Equal(PeriodStart(b)) {
		t.Fatalf("clicks 3 days apart landed in different windows: %v vs %v",
			PeriodStart(a), PeriodStart(b))
	}
}

func TestPeriodStart_AlignedToEpoch(t *testing.T) {
	start := PeriodStart(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	elapsed := start.Sub(time.Unix(0, 0).UTC())
	if elapsed%PeriodLength != 0 {
		t.Fatalf("window start %v is not an integer number of periods after the epoch", start)
	}
}

func TestPeriodStart_WindowBoundary(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	start := PeriodStart(ts)
	end := PeriodEnd(ts)

	if !end.Equal(start.Add(PeriodLength)) {
		t.Fatalf("window is not 14 days: start=%v end=%v", start, end)
	}

	// The last instant of a window still belongs to it; the end does not.
	if !PeriodStart(end.Add(-time.Nanosecond)).Equal(start) {
		t.Errorf("instant just before end left the window")
	}
	if PeriodStart(end).Equal(start) {
		t.Errorf("window end should open the next window")
	}
	if !PeriodStart(end).Equal(end) {
		t.Errorf("next window should start exactly at the previous end, got %v", PeriodStart(end))
	}
}

func TestPeriodStart_Idempotent(t *testing.T) {
	ts := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
	start := PeriodStart(ts)
	if !PeriodStart(start).Equal(start) {
		t.Fatalf("PeriodStart(PeriodStart(t)) != PeriodStart(t): %v vs %v", PeriodStart(start), start)
	}
}

func TestPeriodStart_PreEpoch(t *testing.T) {
	ts := time.Date(1969, 12, 25, 0, 0, 0, 0, time.UTC)
	start := PeriodStart(ts)

	if start.After(ts) {
		t.Fatalf("window start %v is after the timestamp %v", start, ts)
	}
	if !ts.Before(start.Add(PeriodLength)) {
		t.Fatalf("timestamp %v falls outside its window starting %v", ts, start)
	}
	elapsed := start.Sub(time.Unix(0, 0).UTC())
	if elapsed%PeriodLength != 0 {
		t.Fatalf("pre-epoch window start %v is not period-aligned", start)
	}
}

func TestPeriodStart_NormalizesZone(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	ts := time.Date(2026, 3, 2, 3, 0, 0, 0, loc)

	if !PeriodStart(ts).Equal(PeriodStart(ts.UTC())) {
		t.Fatalf("zone change moved the window")
	}
}
