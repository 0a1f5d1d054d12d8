// Package tzrules answers, for a zone id and instant, the base UTC
// offset, DST offset and a localized display name, plus the next
// instant at which those values change. It delegates entirely to the
// Go runtime's own tzdata-backed primitives (time.LoadLocation,
// time.Time.ZoneBounds) rather than reimplementing rule parsing.
package tzrules

import (
	"fmt"
	"time"

	// Blank-import the compiled tzdata so builds work offline even on
	// platforms without a system copy of the IANA database.
	_ "time/tzdata"

	"tzoffline/internal/instant"
)

// Offsets describes a zone's behavior at a single instant.
type Offsets struct {
	RawOffsetMs int64
	DSTOffsetMs int64
	DisplayName string
}

// TotalOffsetMs is the wall-clock offset from UTC: RawOffsetMs + DSTOffsetMs.
func (o Offsets) TotalOffsetMs() int64 { return o.RawOffsetMs + o.DSTOffsetMs }

// Rules resolves zone behavior and transition boundaries. Implementations
// must be safe for concurrent use; the build pipeline calls it from
// multiple per-country workers.
type Rules interface {
	// Valid reports whether zoneId resolves to a known zone.
	Valid(zoneId string) bool
	// At returns the offsets in effect at i.
	At(zoneId string, i instant.Instant) (Offsets, error)
	// NextTransition returns the earliest instant strictly after i at
	// which zoneId's offsets or display name change. ok is false if no
	// further transition is known (the current period runs forever).
	NextTransition(zoneId string, i instant.Instant) (next instant.Instant, ok bool, err error)
}

// GoZoneRules implements Rules using the standard library's own IANA
// database. Splitting an observed offset into "raw" and "DST" parts is
// not exposed by time.Time directly, so it is approximated: the lower
// of the zone's January 1 and July 1 offsets in the same year is
// treated as standard time. Best effort.
type GoZoneRules struct{}

// New returns the default stdlib-backed Rules implementation.
func New() *GoZoneRules { return &GoZoneRules{} }

func (GoZoneRules) Valid(zoneId string) bool {
	_, err := time.LoadLocation(zoneId)
	return err == nil
}

func (GoZoneRules) At(zoneId string, i instant.Instant) (Offsets, error) {
	loc, err := time.LoadLocation(zoneId)
	if err != nil {
		return Offsets{}, fmt.Errorf("tzrules: unknown zone %q: %w", zoneId, err)
	}
	t := i.Time().In(loc)
	name, offsetSec := t.Zone()
	raw, dst := splitOffset(t, loc, offsetSec)
	return Offsets{
		RawOffsetMs: int64(raw) * 1000,
		DSTOffsetMs: int64(dst) * 1000,
		DisplayName: name,
	}, nil
}

func (GoZoneRules) NextTransition(zoneId string, i instant.Instant) (instant.Instant, bool, error) {
	loc, err := time.LoadLocation(zoneId)
	if err != nil {
		return 0, false, fmt.Errorf("tzrules: unknown zone %q: %w", zoneId, err)
	}
	t := i.Time().In(loc)
	_, end := t.ZoneBounds()
	if end.IsZero() {
		return 0, false, nil
	}
	return instant.Of(end), true, nil
}

// splitOffset separates a combined UTC offset (seconds) into standard and
// DST parts by comparing against the January/July occurrences of the
// same zone in the same calendar year.
func splitOffset(t time.Time, loc *time.Location, offsetSec int) (raw, dst int) {
	year := t.Year()
	jan := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	jul := time.Date(year, time.July, 1, 0, 0, 0, 0, loc)
	_, janOff := jan.Zone()
	_, julOff := jul.Zone()

	standard := janOff
	if julOff < janOff {
		standard = julOff
	}
	return standard, offsetSec - standard
}
