package model

import "time"

// PeriodLength is the fixed statistics window size.
const PeriodLength = 14 * 24 * time.Hour

// periodEpoch anchors all period windows. Windows never overlap and every
// instant falls into exactly one window.
var periodEpoch = time.Unix(0, 0).UTC()

// PeriodStart returns the inclusive start of the 14-day window containing t.
func PeriodStart(t time.Time) time.Time {
	elapsed := t.UTC().Sub(periodEpoch)
	if elapsed < 0 {
		// Floor division for pre-epoch timestamps.
		n := (elapsed - PeriodLength + time.Nanosecond) / PeriodLength
		return periodEpoch.Add(n * PeriodLength)
	}
	return periodEpoch.Add((elapsed / PeriodLength) * PeriodLength)
}

// PeriodEnd returns the exclusive end of the window containing t.
func PeriodEnd(t time.Time) time.Time {
	return PeriodStart(t).Add(PeriodLength)
}
