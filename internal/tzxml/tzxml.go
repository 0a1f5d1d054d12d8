// Package tzxml renders resolved CountryOutputRecords to the on-device
// XML wire format. It only maps already-computed data onto stdlib
// encoding/xml structs; no templating or schema validation happens
// here.
package tzxml

import (
	"encoding/xml"
	"io"

	"tzoffline/internal/countryresolver"
)

type root struct {
	XMLName     xml.Name  `xml:"timezones"`
	IanaVersion string    `xml:"ianaVersion,attr"`
	BuildId     string    `xml:"buildId,attr,omitempty"`
	Countries   []country `xml:"country"`
}

type country struct {
	Code    string `xml:"code,attr"`
	Default string `xml:"default,attr"`
	EverUtc string `xml:"everutc,attr"`
	Boost   string `xml:"boost,attr,omitempty"`
	Zones   []zone `xml:"id"`
}

type zone struct {
	ZoneId   string `xml:",chardata"`
	Alts     string `xml:"alts,attr,omitempty"`
	Picker   string `xml:"picker,attr,omitempty"`
	NotAfter *int64 `xml:"notafter,attr,omitempty"`
	Repl     string `xml:"repl,attr,omitempty"`
}

func yn(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// Encoder writes CountryOutputRecords to the build's XML output.
type Encoder struct {
	IanaVersion string
	BuildId     string
}

// Encode writes the full document for the given records, in the order
// given (callers are responsible for country ordering).
func (e Encoder) Encode(w io.Writer, records []countryresolver.CountryOutputRecord) error {
	doc := root{IanaVersion: e.IanaVersion, BuildId: e.BuildId}
	for _, r := range records {
		c := country{
			Code:    r.IsoCode,
			Default: r.DefaultZoneId,
			EverUtc: yn(r.EverUsesUtc),
		}
		if r.DefaultTimeZoneBoost {
			c.Boost = "y"
		}
		for _, z := range r.Zones {
			zx := zone{ZoneId: z.ZoneId, Alts: z.Alts}
			if !z.ShownInPicker {
				zx.Picker = "n"
			}
			if z.NotUsedAfter != nil {
				ms := int64(*z.NotUsedAfter)
				zx.NotAfter = &ms
				zx.Repl = z.Repl
			}
			c.Zones = append(c.Zones, zx)
		}
		doc.Countries = append(doc.Countries, c)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}
