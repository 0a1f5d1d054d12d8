// Package diagnostics provides a scoped, ordered collector of warnings
// and errors used by the build pipeline in place of returning a single
// error per country.
package diagnostics

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Severity distinguishes a Warn entry from an Error entry.
type Severity int

const (
	Warn Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "ERROR"
	}
	return "WARN"
}

// Entry is one recorded diagnostic, in insertion order.
type Entry struct {
	Severity   Severity
	ScopeTrail []string
	Message    string
	Cause      error
}

// Diagnostics collects entries under a stack of nested scope labels.
// It is not safe for concurrent use; callers processing countries in
// parallel must give each worker its own Diagnostics and merge the
// results afterward (see Merge).
type Diagnostics struct {
	scopes  []string
	entries []Entry
	fatal   error
}

// New returns an empty Diagnostics rooted at no scope.
func New() *Diagnostics { return &Diagnostics{} }

// Push nests a new scope label. Callers must pair every Push with a Pop.
func (d *Diagnostics) Push(label string) { d.scopes = append(d.scopes, label) }

// Pop removes the innermost scope label.
func (d *Diagnostics) Pop() {
	if len(d.scopes) == 0 {
		return
	}
	d.scopes = d.scopes[:len(d.scopes)-1]
}

// Scoped pushes label, runs fn, and pops regardless of outcome.
func (d *Diagnostics) Scoped(label string, fn func()) {
	d.Push(label)
	defer d.Pop()
	fn()
}

func (d *Diagnostics) trail() []string {
	trail := make([]string, len(d.scopes))
	copy(trail, d.scopes)
	return trail
}

// Warnf records a warning attached to the current scope trail.
func (d *Diagnostics) Warnf(format string, args ...any) {
	d.entries = append(d.entries, Entry{Severity: Warn, ScopeTrail: d.trail(), Message: fmt.Sprintf(format, args...)})
}

// Errorf records an error attached to the current scope trail.
func (d *Diagnostics) Errorf(cause error, format string, args ...any) {
	d.entries = append(d.entries, Entry{Severity: Error, ScopeTrail: d.trail(), Message: fmt.Sprintf(format, args...), Cause: cause})
}

// Fatalf records an error and marks the Diagnostics fatal: callers
// should stop processing the current scope (e.g. abandon the country)
// as soon as convenient after observing IsFatal.
func (d *Diagnostics) Fatalf(cause error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.entries = append(d.entries, Entry{Severity: Error, ScopeTrail: d.trail(), Message: msg, Cause: cause})
	d.fatal = multierr.Append(d.fatal, fmt.Errorf("%s: %w", strings.Join(d.trail(), "/"), cause))
}

// IsFatal reports whether Fatalf has ever been called.
func (d *Diagnostics) IsFatal() bool { return d.fatal != nil }

// FatalErr returns the aggregated fatal cause, or nil.
func (d *Diagnostics) FatalErr() error { return d.fatal }

// HasError reports whether any Error-severity entry was recorded.
func (d *Diagnostics) HasError() bool {
	for _, e := range d.entries {
		if e.Severity == Error {
			return true
		}
	}
	return false
}

// Entries returns all recorded entries in insertion order.
func (d *Diagnostics) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Merge appends other's entries to d, preserving other's relative order
// after d's existing entries. Used to combine per-country Diagnostics
// collected by parallel workers into one build-wide report.
func (d *Diagnostics) Merge(other *Diagnostics) {
	d.entries = append(d.entries, other.entries...)
	if other.fatal != nil {
		d.fatal = multierr.Append(d.fatal, other.fatal)
	}
}

// reportEntry mirrors Entry with stable field names for the YAML report.
type reportEntry struct {
	Severity string   `yaml:"severity"`
	Scope    []string `yaml:"scope,omitempty"`
	Message  string   `yaml:"message"`
	Cause    string   `yaml:"cause,omitempty"`
}

// YAML renders all entries as a YAML document, in insertion order. The
// CLI writes this as the machine-readable build report.
func (d *Diagnostics) YAML() ([]byte, error) {
	out := make([]reportEntry, 0, len(d.entries))
	for _, e := range d.entries {
		re := reportEntry{Severity: e.Severity.String(), Scope: e.ScopeTrail, Message: e.Message}
		if e.Cause != nil {
			re.Cause = e.Cause.Error()
		}
		out = append(out, re)
	}
	return yaml.Marshal(out)
}

// Render formats entries one per line: "SEVERITY scope/trail: message (cause)".
func (d *Diagnostics) Render() string {
	var b strings.Builder
	for _, e := range d.entries {
		fmt.Fprintf(&b, "%s %s: %s", e.Severity, strings.Join(e.ScopeTrail, "/"), e.Message)
		if e.Cause != nil {
			fmt.Fprintf(&b, " (%v)", e.Cause)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
