// Package tzbuild orchestrates the country-zone consolidation engine
// end to end: parse the build inputs, resolve every country in
// parallel (countries are independent), merge diagnostics, and emit
// the XML document or nothing at all. On any failure the output is
// absent, never partial.
package tzbuild

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"tzoffline/internal/countryresolver"
	"tzoffline/internal/diagnostics"
	"tzoffline/internal/instant"
	"tzoffline/internal/tzdata"
	"tzoffline/internal/tzrules"
	"tzoffline/internal/tzxml"
)

// Exit codes reported by the build CLI.
const (
	ExitSuccess       = 0
	ExitValidation    = 1
	ExitMissingInputs = 2
	ExitFatal         = 3
)

// Inputs names the three build input files.
type Inputs struct {
	CountryZonesPath string
	ZoneTabPath      string
	BackwardPath     string
}

// Outcome is the full result of one build invocation.
type Outcome struct {
	ExitCode    int
	Diagnostics *diagnostics.Diagnostics
	XML         []byte // nil unless ExitCode == ExitSuccess
}

// Run executes the build. buildId is an opaque correlation id (the CLI
// passes a UUID) threaded into the XML root for traceability.
func Run(fs afero.Fs, rules tzrules.Rules, in Inputs, buildId string) Outcome {
	diag := diagnostics.New()

	zoneTabEntries, err := tzdata.ParseZoneTab(fs, in.ZoneTabPath)
	if err != nil {
		return inputFailure(diag, "zone.tab", err)
	}
	aliases, err := tzdata.ParseBackward(fs, in.BackwardPath)
	if err != nil {
		return inputFailure(diag, "backward", err)
	}
	cz, err := tzdata.ParseCountryZones(fs, in.CountryZonesPath)
	if err != nil {
		return inputFailure(diag, "countryzones", err)
	}

	ianaYear, err := parseIanaYear(cz.IanaVersion)
	if err != nil {
		diag.Fatalf(err, "ianaVersion")
		return Outcome{ExitCode: ExitFatal, Diagnostics: diag}
	}
	sampleInstant := instant.Of(time.Date(ianaYear+1, time.July, 2, 12, 0, 0, 0, time.UTC))
	yearStartInstant := instant.Of(time.Date(ianaYear, time.January, 1, 0, 0, 0, 0, time.UTC))

	zonesByCountry := tzdata.ZoneIdsByCountry(zoneTabEntries)

	type countryResult struct {
		record countryresolver.CountryOutputRecord
		diag   *diagnostics.Diagnostics
		err    error
	}
	results := make([]countryResult, len(cz.Countries))

	p := pool.New().WithMaxGoroutines(max(1, runtime.NumCPU()))
	for i, country := range cz.Countries {
		i, country := i, country
		p.Go(func() {
			d := diagnostics.New()
			d.Push(country.IsoCode)
			defer d.Pop()
			rec, err := countryresolver.Resolve(d, rules, country, zonesByCountry[country.IsoCode], aliases, sampleInstant, yearStartInstant)
			if err != nil {
				d.Errorf(err, "resolve failed")
			}
			results[i] = countryResult{record: rec, diag: d, err: err}
		})
	}
	p.Wait()

	var records []countryresolver.CountryOutputRecord
	for _, r := range results {
		diag.Merge(r.diag)
		if r.err == nil {
			records = append(records, r.record)
		}
	}

	if diag.IsFatal() {
		return Outcome{ExitCode: ExitFatal, Diagnostics: diag}
	}
	if diag.HasError() {
		return Outcome{ExitCode: ExitValidation, Diagnostics: diag}
	}

	enc := tzxml.Encoder{IanaVersion: cz.IanaVersion, BuildId: buildId}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, records); err != nil {
		diag.Errorf(err, "xml encode")
		return Outcome{ExitCode: ExitValidation, Diagnostics: diag}
	}

	return Outcome{ExitCode: ExitSuccess, Diagnostics: diag, XML: buf.Bytes()}
}

// inputFailure maps an input-stage error onto the exit-code contract: a
// missing file is ExitMissingInputs; a present but malformed file (alias
// cycle, bad schema) is fatal.
func inputFailure(diag *diagnostics.Diagnostics, name string, err error) Outcome {
	if errors.Is(err, os.ErrNotExist) {
		diag.Errorf(err, "%s: missing build input", name)
		return Outcome{ExitCode: ExitMissingInputs, Diagnostics: diag}
	}
	diag.Fatalf(err, "%s", name)
	return Outcome{ExitCode: ExitFatal, Diagnostics: diag}
}

func parseIanaYear(ianaVersion string) (int, error) {
	if len(ianaVersion) < 4 {
		return 0, fmt.Errorf("tzbuild: malformed ianaVersion %q", ianaVersion)
	}
	return strconv.Atoi(ianaVersion[:4])
}
