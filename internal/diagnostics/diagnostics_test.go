package diagnostics

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestWarnfRecordsScopedEntry(t *testing.T) {
	d := New()
	d.Scoped("us", func() {
		d.Warnf("odd offset for %s", "America/Phoenix")
	})

	entries := d.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Severity != Warn {
		t.Errorf("expected Warn severity, got %v", entries[0].Severity)
	}
	if len(entries[0].ScopeTrail) != 1 || entries[0].ScopeTrail[0] != "us" {
		t.Errorf("unexpected scope trail: %v", entries[0].ScopeTrail)
	}
	if d.IsFatal() {
		t.Error("did not expect Warnf to mark diagnostics fatal")
	}
}

func TestNestedScopes(t *testing.T) {
	d := New()
	d.Push("us")
	d.Push("America/New_York")
	d.Errorf(errors.New("boom"), "something went wrong")
	d.Pop()
	d.Pop()

	entries := d.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	want := []string{"us", "America/New_York"}
	got := entries[0].ScopeTrail
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("scope trail = %v, want %v", got, want)
	}
	if !d.HasError() {
		t.Error("expected HasError to be true after Errorf")
	}
}

func TestPopOnEmptyStackIsNoop(t *testing.T) {
	d := New()
	d.Pop() // must not panic
	d.Warnf("fine")
	if len(d.Entries()[0].ScopeTrail) != 0 {
		t.Error("expected empty scope trail")
	}
}

func TestFatalfMarksFatalAndAggregates(t *testing.T) {
	d := New()
	cause1 := errors.New("first failure")
	cause2 := errors.New("second failure")

	d.Scoped("gb", func() { d.Fatalf(cause1, "country failed") })
	d.Scoped("fr", func() { d.Fatalf(cause2, "country failed") })

	if !d.IsFatal() {
		t.Fatal("expected IsFatal to be true")
	}
	err := d.FatalErr()
	if err == nil {
		t.Fatal("expected a non-nil fatal error")
	}
	if !errors.Is(err, cause1) || !errors.Is(err, cause2) {
		t.Error("expected the aggregated fatal error to wrap both causes")
	}
}

func TestMergeCombinesEntriesAndFatal(t *testing.T) {
	a := New()
	a.Warnf("a warning")

	b := New()
	cause := errors.New("country b exploded")
	b.Fatalf(cause, "country b failed")

	a.Merge(b)

	if len(a.Entries()) != 2 {
		t.Fatalf("expected 2 entries after merge, got %d", len(a.Entries()))
	}
	if !a.IsFatal() {
		t.Error("expected merged diagnostics to be fatal")
	}
	if !errors.Is(a.FatalErr(), cause) {
		t.Error("expected merged fatal error to wrap the source's cause")
	}
}

func TestYAMLReportRoundTrips(t *testing.T) {
	d := New()
	d.Scoped("us", func() {
		d.Warnf("odd offset")
		d.Errorf(errors.New("boom"), "resolve failed")
	})

	raw, err := d.YAML()
	if err != nil {
		t.Fatalf("YAML() failed: %v", err)
	}

	var decoded []struct {
		Severity string   `yaml:"severity"`
		Scope    []string `yaml:"scope"`
		Message  string   `yaml:"message"`
		Cause    string   `yaml:"cause"`
	}
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("re-parsing the YAML report failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 report entries, got %d", len(decoded))
	}
	if decoded[0].Severity != "WARN" || decoded[1].Severity != "ERROR" {
		t.Errorf("unexpected severities: %+v", decoded)
	}
	if decoded[1].Cause != "boom" {
		t.Errorf("cause = %q, want boom", decoded[1].Cause)
	}
	if len(decoded[0].Scope) != 1 || decoded[0].Scope[0] != "us" {
		t.Errorf("scope = %v, want [us]", decoded[0].Scope)
	}
}

func TestRenderFormatsEntries(t *testing.T) {
	d := New()
	d.Scoped("us", func() {
		d.Warnf("offset not on a 15-minute boundary")
	})

	out := d.Render()
	if !strings.Contains(out, "WARN") {
		t.Errorf("expected rendered output to mention severity, got: %q", out)
	}
	if !strings.Contains(out, "us") {
		t.Errorf("expected rendered output to mention scope, got: %q", out)
	}
	if !strings.Contains(out, "offset not on a 15-minute boundary") {
		t.Errorf("expected rendered output to include the message, got: %q", out)
	}
}
