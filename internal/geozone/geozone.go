// Package geozone provides a small in-memory GeoZoneFinder, sufficient
// to drive the provider state machine end to end without the real
// on-disk S2-cell range reader.
package geozone

import (
	"fmt"
	"math"

	"tzoffline/internal/providershared"
)

// Box is a rectangular lat/lng region mapped to an ordered zone id list.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	ZoneIds        []string
}

func (b Box) contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// StaticFinder answers TokenFor/ZonesFor from a fixed slice of boxes,
// checked in order; the first match wins. A location matching no box
// yields an empty zone list. Every box is
// also indexed by the token of its own center, so ZonesFor can resolve
// a token even after the originating (lat,lng) is gone.
type StaticFinder struct {
	boxes   []Box
	byToken map[providershared.LocationToken][]string
}

// New returns a StaticFinder over the given boxes, in priority order.
func New(boxes ...Box) *StaticFinder {
	f := &StaticFinder{boxes: boxes, byToken: map[providershared.LocationToken][]string{}}
	for _, b := range boxes {
		repLat := (b.MinLat + b.MaxLat) / 2
		repLng := (b.MinLng + b.MaxLng) / 2
		tok := f.TokenFor(repLat, repLng)
		if _, taken := f.byToken[tok]; !taken {
			f.byToken[tok] = b.ZoneIds
		}
	}
	return f
}

// TokenFor buckets (lat,lng) onto a coarse integer grid cell, which
// stands in for an S2 cell id: equal buckets compare equal as a
// providershared.LocationToken.
func (f *StaticFinder) TokenFor(lat, lng float64) providershared.LocationToken {
	const cellDegrees = 0.5
	latCell := math.Floor(lat / cellDegrees)
	lngCell := math.Floor(lng / cellDegrees)
	return providershared.LocationToken(fmt.Sprintf("%g,%g", latCell, lngCell))
}

// ZonesFor resolves a token minted by TokenFor to the zone ids of the
// box whose own center falls in the same cell, falling back to a
// linear scan over box bounds (against the center of the token's cell)
// for tokens it has not indexed.
func (f *StaticFinder) ZonesFor(token providershared.LocationToken) []string {
	if ids, ok := f.byToken[token]; ok {
		return ids
	}
	const cellDegrees = 0.5
	var latCell, lngCell float64
	if _, err := fmt.Sscanf(string(token), "%g,%g", &latCell, &lngCell); err != nil {
		return nil
	}
	lat := (latCell + 0.5) * cellDegrees
	lng := (lngCell + 0.5) * cellDegrees
	for _, b := range f.boxes {
		if b.contains(lat, lng) {
			return b.ZoneIds
		}
	}
	return nil
}
