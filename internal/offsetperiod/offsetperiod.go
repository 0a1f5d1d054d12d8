// Package offsetperiod provides the immutable [start, end) span during
// which a zone's offsets and display name are constant.
package offsetperiod

import (
	"fmt"

	"tzoffline/internal/instant"
	"tzoffline/internal/tzrules"
)

// Period is a maximal contiguous interval where a zone's rule-derived
// fields are constant. Equality is by all five fields.
type Period struct {
	Start       instant.Instant // inclusive
	End         instant.Instant // exclusive
	RawOffsetMs int64
	DSTOffsetMs int64
	DisplayName string
}

// Equal reports field-by-field equality.
func (p Period) Equal(o Period) bool {
	return p.Start == o.Start && p.End == o.End &&
		p.RawOffsetMs == o.RawOffsetMs && p.DSTOffsetMs == o.DSTOffsetMs &&
		p.DisplayName == o.DisplayName
}

// New returns the period starting at start, inside [start, horizon),
// where the period's end is the earlier of the zone's next rule
// transition or horizon.
func New(rules tzrules.Rules, zoneId string, start, horizon instant.Instant) (Period, error) {
	if !start.Before(horizon) {
		return Period{}, fmt.Errorf("offsetperiod: start %v not before horizon %v", start, horizon)
	}

	offs, err := rules.At(zoneId, start)
	if err != nil {
		return Period{}, err
	}

	end := horizon
	next, ok, err := rules.NextTransition(zoneId, start)
	if err != nil {
		return Period{}, err
	}
	if ok && next.Before(horizon) {
		end = next
	}

	return Period{
		Start:       start,
		End:         end,
		RawOffsetMs: offs.RawOffsetMs,
		DSTOffsetMs: offs.DSTOffsetMs,
		DisplayName: offs.DisplayName,
	}, nil
}
