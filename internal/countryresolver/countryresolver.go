// Package countryresolver validates one country's raw zone mapping
// input against IANA data and emits the consolidated per-country
// output record consumed by the XML emitter.
package countryresolver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"tzoffline/internal/constants"
	"tzoffline/internal/diagnostics"
	"tzoffline/internal/instant"
	"tzoffline/internal/tzrules"
	"tzoffline/internal/zonehistory"
	"tzoffline/internal/zonetree"
)

// Horizon constants for the zone tree built during resolution. The end
// extends two years past the cutoff to cover the last DST cycle.
var (
	ZoneUsageCalcsStart     = instant.Of(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	ZoneUsageNotAfterCutoff = instant.MaxInstant
	ZoneUsageCalcsEnd       = ZoneUsageNotAfterCutoff.AddYears(2)
)

// Sentinel validation errors, checkable with errors.Is.
var (
	ErrBadIsoCode        = errors.New("countryresolver: iso code must be two lowercase ASCII letters")
	ErrBoostNeedsDefault = errors.New("countryresolver: defaultTimeZoneBoost requires an explicit defaultZoneId")
	ErrNoZones           = errors.New("countryresolver: country has no zones")
	ErrDuplicateZones    = errors.New("countryresolver: duplicate zone id")
	ErrAmbiguousDefault  = errors.New("countryresolver: cannot infer default zone")
	ErrInvalidZoneId     = errors.New("countryresolver: zone id not resolvable")
	ErrIanaMismatch      = errors.New("countryresolver: expected ids do not match IANA zone list")
	ErrOffsetMismatch    = errors.New("countryresolver: declared offset does not match rules at sample instant")
	ErrPriorityClash     = errors.New("countryresolver: unresolved priority clash")
)

// ZoneMappingInput is one zone entry of a CountryInput.
type ZoneMappingInput struct {
	ZoneId          string
	UtcOffsetString string
	Priority        int // default 1
	ShownInPicker   bool
	AliasId         string // "" if absent
}

// CountryInput is the raw per-country build input.
type CountryInput struct {
	IsoCode              string
	DefaultZoneId        string // "" if absent
	DefaultTimeZoneBoost bool
	Zones                []ZoneMappingInput
}

// ZoneOutput is one emitted zone entry.
type ZoneOutput struct {
	ZoneId        string
	Alts          string // preferred IANA id, set when the input carried an alias
	ShownInPicker bool
	NotUsedAfter  *instant.Instant
	Repl          string // replacement zone id, set iff NotUsedAfter is set
}

// CountryOutputRecord is the resolved per-country output.
type CountryOutputRecord struct {
	IsoCode              string
	DefaultZoneId        string
	DefaultTimeZoneBoost bool
	EverUsesUtc          bool
	Zones                []ZoneOutput
}

// Resolve validates in against IANA data, arbitrates zone priorities
// over the usage horizon, and produces the country's output record.
// Warnings are recorded on diag; a non-nil returned error means the
// country must be excluded from output entirely.
func Resolve(
	diag *diagnostics.Diagnostics,
	rules tzrules.Rules,
	in CountryInput,
	ianaZoneList []string,
	aliases map[string]string,
	sampleInstant, yearStartInstant instant.Instant,
) (CountryOutputRecord, error) {
	if !validIsoCode(in.IsoCode) {
		return CountryOutputRecord{}, errors.Wrapf(ErrBadIsoCode, "%q", in.IsoCode)
	}
	if in.DefaultTimeZoneBoost && in.DefaultZoneId == "" {
		return CountryOutputRecord{}, errors.Wrapf(ErrBoostNeedsDefault, "%s", in.IsoCode)
	}

	// Step 1: non-empty, unique zone ids.
	if len(in.Zones) == 0 {
		return CountryOutputRecord{}, ErrNoZones
	}
	seen := map[string]bool{}
	for _, z := range in.Zones {
		if seen[z.ZoneId] {
			return CountryOutputRecord{}, errors.Wrapf(ErrDuplicateZones, "%s", z.ZoneId)
		}
		seen[z.ZoneId] = true
	}

	// Step 2: default zone id.
	defaultZoneId := in.DefaultZoneId
	if defaultZoneId == "" {
		if len(in.Zones) != 1 {
			return CountryOutputRecord{}, ErrAmbiguousDefault
		}
		defaultZoneId = in.Zones[0].ZoneId
	} else if !seen[defaultZoneId] {
		return CountryOutputRecord{}, errors.Wrapf(ErrAmbiguousDefault, "default %q not among country zones", defaultZoneId)
	}

	// Step 3: each zone id resolvable.
	for _, z := range in.Zones {
		if !rules.Valid(z.ZoneId) {
			return CountryOutputRecord{}, errors.Wrapf(ErrInvalidZoneId, "%s", z.ZoneId)
		}
	}

	// Step 4: alias reconciliation vs IANA.
	expected := make(map[string]bool, len(in.Zones))
	for _, z := range in.Zones {
		if z.AliasId != "" {
			if aliases[z.ZoneId] != z.AliasId {
				return CountryOutputRecord{}, errors.Wrapf(ErrIanaMismatch, "%s: expected alias %q, backward has %q", z.ZoneId, z.AliasId, aliases[z.ZoneId])
			}
			expected[z.AliasId] = true
		} else {
			expected[z.ZoneId] = true
		}
	}
	ianaSet := make(map[string]bool, len(ianaZoneList))
	for _, id := range ianaZoneList {
		ianaSet[id] = true
	}
	if len(expected) != len(ianaSet) {
		return CountryOutputRecord{}, errors.Wrapf(ErrIanaMismatch, "%s: expected id set size %d != iana list size %d", in.IsoCode, len(expected), len(ianaSet))
	}
	for id := range expected {
		if !ianaSet[id] {
			return CountryOutputRecord{}, errors.Wrapf(ErrIanaMismatch, "%s: %q not in iana zone list", in.IsoCode, id)
		}
	}

	// Step 5: offset sanity at sampleInstant.
	for _, z := range in.Zones {
		declaredMs, err := parseHHmm(z.UtcOffsetString)
		if err != nil {
			return CountryOutputRecord{}, errors.Wrapf(err, "%s: bad utcOffsetString %q", z.ZoneId, z.UtcOffsetString)
		}
		offs, err := rules.At(z.ZoneId, sampleInstant)
		if err != nil {
			return CountryOutputRecord{}, errors.Wrapf(err, "%s", z.ZoneId)
		}
		if offs.RawOffsetMs != declaredMs {
			return CountryOutputRecord{}, errors.Wrapf(ErrOffsetMismatch, "%s: declared %dms, rules say %dms at sample instant", z.ZoneId, declaredMs, offs.RawOffsetMs)
		}
		if declaredMs%(15*constants.SecondsPerMinute*1000) != 0 {
			diag.Warnf("%s: declared offset %dms is not a multiple of 15 minutes", z.ZoneId, declaredMs)
		}
	}

	// Build per-zone histories once; used for everUsesUtc and the ZoneTree.
	priority := func(p int) int {
		if p == 0 {
			return 1
		}
		return p
	}
	histories := make([]zonehistory.History, 0, len(in.Zones))
	byId := make(map[string]zonehistory.History, len(in.Zones))
	for _, z := range in.Zones {
		h, err := zonehistory.New(rules, z.ZoneId, priority(z.Priority), ZoneUsageCalcsStart, ZoneUsageCalcsEnd)
		if err != nil {
			return CountryOutputRecord{}, errors.Wrapf(err, "%s", z.ZoneId)
		}
		histories = append(histories, h)
		byId[z.ZoneId] = h
	}

	// Step 6: everUsesUtc. A period counts if any part of it lies at or
	// after yearStartInstant, including one that started earlier and is
	// still active then.
	everUsesUtc := false
	for _, h := range histories {
		for _, p := range h.Periods {
			if !p.End.After(yearStartInstant) {
				continue
			}
			if p.RawOffsetMs+p.DSTOffsetMs == 0 {
				everUsesUtc = true
				break
			}
		}
		if everUsesUtc {
			break
		}
	}

	// Step 7: ZoneTree, validate, computeUsage.
	tree, err := zonetree.Build(in.IsoCode, histories, ZoneUsageCalcsStart, ZoneUsageCalcsEnd)
	if err != nil {
		return CountryOutputRecord{}, errors.Wrapf(err, "%s", in.IsoCode)
	}
	if clashes := tree.Validate(); len(clashes) > 0 {
		for _, c := range clashes {
			diag.Errorf(ErrPriorityClash, "%s: zones %s clash at priority %d (node %s)", in.IsoCode, strings.Join(c.ZoneIds, ","), c.Priority, c.NodeID)
		}
		return CountryOutputRecord{}, ErrPriorityClash
	}
	usage, err := tree.ComputeUsage(ZoneUsageNotAfterCutoff)
	if err != nil {
		return CountryOutputRecord{}, errors.Wrapf(err, "%s", in.IsoCode)
	}

	// Step 8: emit in input order.
	out := CountryOutputRecord{
		IsoCode:              in.IsoCode,
		DefaultZoneId:        defaultZoneId,
		DefaultTimeZoneBoost: in.DefaultTimeZoneBoost,
		EverUsesUtc:          everUsesUtc,
	}
	for _, z := range in.Zones {
		zo := ZoneOutput{ZoneId: z.ZoneId, Alts: z.AliasId, ShownInPicker: z.ShownInPicker}
		if u, ok := usage[z.ZoneId]; ok && !u.StillInUse {
			end := u.NotUsedAfter
			zo.NotUsedAfter = &end
			zo.Repl = tree.PrimaryForZone(z.ZoneId)
		}
		out.Zones = append(out.Zones, zo)
	}
	return out, nil
}

func validIsoCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

func parseHHmm(s string) (int64, error) {
	neg := false
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("countryresolver: malformed offset %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("countryresolver: malformed offset hours %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("countryresolver: malformed offset minutes %q", s)
	}
	ms := int64(h*constants.SecondsPerHour+m*constants.SecondsPerMinute) * 1000
	if neg {
		ms = -ms
	}
	return ms, nil
}
