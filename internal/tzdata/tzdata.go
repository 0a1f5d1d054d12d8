// Package tzdata parses the raw IANA-adjacent build inputs: zone.tab,
// backward, and countryzones. The first two follow the fixed upstream
// line grammars; countryzones is ingested as JSON shaped directly like
// countryresolver.CountryInput.
package tzdata

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"tzoffline/internal/countryresolver"
)

// ErrAliasCycle is fatal: a backward chain exceeded length 2.
var ErrAliasCycle = errors.New("tzdata: alias chain exceeds length 2")

// ZoneTabEntry is one non-comment, non-blank line of zone.tab.
type ZoneTabEntry struct {
	CountryCode string // upper-case ISO, as written in the file
	ZoneId      string
}

// ParseZoneTab reads ISO_UPPER<TAB>coords<TAB>zoneId lines, skipping
// blank lines and lines starting with '#'.
func ParseZoneTab(fs afero.Fs, path string) ([]ZoneTabEntry, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "tzdata: open %s", path)
	}
	defer f.Close()

	var out []ZoneTabEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("tzdata: malformed zone.tab line %q", line)
		}
		out = append(out, ZoneTabEntry{CountryCode: fields[0], ZoneId: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "tzdata: read %s", path)
	}
	return out, nil
}

// ZoneIdsByCountry groups zone.tab entries by lower-cased country code,
// preserving file order within each country.
func ZoneIdsByCountry(entries []ZoneTabEntry) map[string][]string {
	out := map[string][]string{}
	for _, e := range entries {
		cc := strings.ToLower(e.CountryCode)
		out[cc] = append(out[cc], e.ZoneId)
	}
	return out
}

// AllZoneIds returns every zone id across all entries, in file order.
func AllZoneIds(entries []ZoneTabEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ZoneId)
	}
	return out
}

// ParseBackward reads "Link<TAB>+targetId<TAB>+linkName" lines (other
// lines ignored) and collapses chains so no alias resolves through more
// than one hop: if linkName itself later appears as a target elsewhere,
// the chain is followed once; a chain longer than that is a fatal
// ErrAliasCycle.
func ParseBackward(fs afero.Fs, path string) (map[string]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "tzdata: open %s", path)
	}
	defer f.Close()

	raw := map[string]string{} // linkName -> targetId, as literally written
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[0] != "Link" {
			continue
		}
		target, link := fields[1], fields[2]
		raw[link] = target
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "tzdata: read %s", path)
	}

	resolved := make(map[string]string, len(raw))
	for link, target := range raw {
		final := target
		if next, ok := raw[target]; ok {
			if _, chainsAgain := raw[next]; chainsAgain {
				return nil, errors.Wrapf(ErrAliasCycle, "%s -> %s -> %s -> ...", link, target, next)
			}
			final = next
		}
		resolved[link] = final
	}
	return resolved, nil
}

// zoneMappingDTO mirrors countryresolver.ZoneMappingInput but uses
// pointers so JSON decoding can tell "field absent" from "field false"
// when applying the priority and shownInPicker defaults.
type zoneMappingDTO struct {
	ZoneId          string `json:"zoneId"`
	UtcOffsetString string `json:"utcOffsetString"`
	Priority        *int   `json:"priority"`
	ShownInPicker   *bool  `json:"shownInPicker"`
	AliasId         string `json:"aliasId"`
}

type countryInputDTO struct {
	IsoCode              string           `json:"isoCode"`
	DefaultZoneId        string           `json:"defaultZoneId"`
	DefaultTimeZoneBoost bool             `json:"defaultTimeZoneBoost"`
	Zones                []zoneMappingDTO `json:"zones"`
}

// CountryZonesFile is the decoded, defaulted countryzones build input.
type CountryZonesFile struct {
	IanaVersion string
	Countries   []countryresolver.CountryInput
}

// ParseCountryZones decodes the countryzones build input and applies
// the field defaults (priority 1, shownInPicker true).
func ParseCountryZones(fs afero.Fs, path string) (CountryZonesFile, error) {
	f, err := fs.Open(path)
	if err != nil {
		return CountryZonesFile{}, errors.Wrapf(err, "tzdata: open %s", path)
	}
	defer f.Close()

	var raw struct {
		IanaVersion string            `json:"ianaVersion"`
		Countries   []countryInputDTO `json:"countries"`
	}
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return CountryZonesFile{}, errors.Wrapf(err, "tzdata: decode %s", path)
	}

	out := CountryZonesFile{IanaVersion: raw.IanaVersion}
	for _, c := range raw.Countries {
		ci := countryresolver.CountryInput{
			IsoCode:              c.IsoCode,
			DefaultZoneId:        c.DefaultZoneId,
			DefaultTimeZoneBoost: c.DefaultTimeZoneBoost,
		}
		for _, z := range c.Zones {
			priority := 1
			if z.Priority != nil {
				priority = *z.Priority
			}
			shown := true
			if z.ShownInPicker != nil {
				shown = *z.ShownInPicker
			}
			ci.Zones = append(ci.Zones, countryresolver.ZoneMappingInput{
				ZoneId:          z.ZoneId,
				UtcOffsetString: z.UtcOffsetString,
				Priority:        priority,
				ShownInPicker:   shown,
				AliasId:         z.AliasId,
			})
		}
		out.Countries = append(out.Countries, ci)
	}
	return out, nil
}
