// Package instant provides the millisecond-precision timeline used
// throughout the time-zone resolution core. All cross-component
// boundaries (OffsetPeriod, ZoneHistory, ZoneUsageRecord) are expressed
// in this type rather than in time.Time, so arithmetic saturates instead
// of wrapping and every component agrees on a single epoch.
package instant

import "time"

// Instant is milliseconds since the Unix epoch, UTC.
type Instant int64

const (
	minInstant Instant = -1 << 62
	maxInstant Instant = 1 << 62

	// MaxInstant is the well-known "no cutoff visible to clients" sentinel:
	// 03:14:07 UTC, 19 Jan 2038 (the int32-seconds rollover instant).
	MaxInstant Instant = Instant(int64(1<<31-1) * 1000)
)

// Of builds an Instant from a time.Time, truncating to millisecond precision.
func Of(t time.Time) Instant {
	return Instant(t.UnixMilli())
}

// Time converts back to a UTC time.Time.
func (i Instant) Time() time.Time {
	return time.UnixMilli(int64(i)).UTC()
}

// Add saturates at ±∞ instead of overflowing.
func (i Instant) Add(d time.Duration) Instant {
	ms := d.Milliseconds()
	if ms > 0 && i > maxInstant-Instant(ms) {
		return maxInstant
	}
	if ms < 0 && i < minInstant-Instant(ms) {
		return minInstant
	}
	return i + Instant(ms)
}

// Before reports i < other.
func (i Instant) Before(other Instant) bool { return i < other }

// After reports i > other.
func (i Instant) After(other Instant) bool { return i > other }

// AddYears returns the instant that many calendar years (UTC) later.
func (i Instant) AddYears(years int) Instant {
	t := i.Time().AddDate(years, 0, 0)
	return Of(t)
}
