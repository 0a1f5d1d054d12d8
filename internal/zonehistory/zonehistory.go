// Package zonehistory models the ordered sequence of offset periods
// for one zone id over [S, E), carrying the country-local priority
// used to arbitrate between agreeing zones.
package zonehistory

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"tzoffline/internal/instant"
	"tzoffline/internal/offsetperiod"
	"tzoffline/internal/tzrules"
)

// ErrInvalidPriority is returned when priority falls outside [1, 10].
var ErrInvalidPriority = errors.New("zonehistory: priority must be in [1, 10]")

// History is the period timeline for one zone, tagged with its
// country-local priority.
type History struct {
	ZoneId   string
	Priority int
	Periods  []offsetperiod.Period
}

// New builds a History by repeatedly calling the OffsetPeriod factory
// starting from S, stopping once the next period's start would reach E.
func New(rules tzrules.Rules, zoneId string, priority int, s, e instant.Instant) (History, error) {
	if priority < 1 || priority > 10 {
		return History{}, fmt.Errorf("%w: got %d", ErrInvalidPriority, priority)
	}
	if !s.Before(e) {
		return History{}, fmt.Errorf("zonehistory: S %v not before E %v", s, e)
	}

	var periods []offsetperiod.Period
	cur := s
	for cur.Before(e) {
		p, err := offsetperiod.New(rules, zoneId, cur, e)
		if err != nil {
			return History{}, err
		}
		periods = append(periods, p)
		cur = p.End
	}

	return History{ZoneId: zoneId, Priority: priority, Periods: periods}, nil
}

// Key is a hashable summary of a slice of periods. Two Histories that
// return equal Keys over the same range are indistinguishable over that
// range: Key is computed purely from field values, never from Go's
// identity hashing, so byte-identical periods from independently built
// Histories always compare equal.
type Key [sha256.Size]byte

// KeyOverRange returns a Key derived from periods[i:j).
func (h History) KeyOverRange(i, j int) Key {
	hasher := sha256.New()
	var buf [40]byte
	for _, p := range h.Periods[i:j] {
		binary.BigEndian.PutUint64(buf[0:8], uint64(p.Start))
		binary.BigEndian.PutUint64(buf[8:16], uint64(p.End))
		binary.BigEndian.PutUint64(buf[16:24], uint64(p.RawOffsetMs))
		binary.BigEndian.PutUint64(buf[24:32], uint64(p.DSTOffsetMs))
		binary.BigEndian.PutUint64(buf[32:40], uint64(len(p.DisplayName)))
		hasher.Write(buf[:])
		hasher.Write([]byte(p.DisplayName))
	}
	var out Key
	copy(out[:], hasher.Sum(nil))
	return out
}

// KeyAt returns the Key for the single period PeriodAt(k) would return.
// ok is false under the same condition as PeriodAt.
func (h History) KeyAt(k int) (key Key, ok bool) {
	idx := len(h.Periods) - (k + 1)
	if idx < 0 {
		return Key{}, false
	}
	return h.KeyOverRange(idx, idx+1), true
}

// PeriodAt returns the period at the given index counted backward from
// the end of the timeline: index 0 is the last period, index k is the
// k-th period before that. ok is false once the zone has run out of
// periods in that direction (the zone's history is shorter than k+1
// periods, i.e. it ended before the start of the shared timeline).
func (h History) PeriodAt(k int) (p offsetperiod.Period, ok bool) {
	idx := len(h.Periods) - (k + 1)
	if idx < 0 {
		return offsetperiod.Period{}, false
	}
	return h.Periods[idx], true
}
