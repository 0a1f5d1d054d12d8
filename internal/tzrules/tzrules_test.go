package tzrules

import (
	"testing"
	"time"

	"tzoffline/internal/instant"
)

func TestValid(t *testing.T) {
	r := New()

	if !r.Valid("Europe/London") {
		t.Error("expected Europe/London to be valid")
	}
	if r.Valid("Not/AZone") {
		t.Error("expected Not/AZone to be invalid")
	}
}

func TestAtKnownZone(t *testing.T) {
	r := New()
	i := instant.Of(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	offs, err := r.At("Europe/London", i)
	if err != nil {
		t.Fatalf("At() failed: %v", err)
	}
	if offs.TotalOffsetMs() != 0 {
		t.Errorf("expected London in January to be UTC+0, got %dms", offs.TotalOffsetMs())
	}
}

func TestAtAppliesDSTInSummer(t *testing.T) {
	r := New()
	i := instant.Of(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC))

	offs, err := r.At("Europe/London", i)
	if err != nil {
		t.Fatalf("At() failed: %v", err)
	}
	if offs.TotalOffsetMs() != 3600*1000 {
		t.Errorf("expected London in July to be UTC+1, got %dms", offs.TotalOffsetMs())
	}
	if offs.DSTOffsetMs == 0 {
		t.Error("expected non-zero DST offset in British Summer Time")
	}
}

func TestAtUnknownZone(t *testing.T) {
	r := New()
	_, err := r.At("Not/AZone", instant.Of(time.Now()))
	if err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestNextTransitionFindsDSTBoundary(t *testing.T) {
	r := New()
	i := instant.Of(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	next, ok, err := r.NextTransition("Europe/London", i)
	if err != nil {
		t.Fatalf("NextTransition() failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a transition to be found")
	}
	if !next.After(i) {
		t.Errorf("expected next transition %v to be after %v", next, i)
	}
}

func TestNextTransitionUTCHasNone(t *testing.T) {
	r := New()
	i := instant.Of(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	_, ok, err := r.NextTransition("UTC", i)
	if err != nil {
		t.Fatalf("NextTransition() failed: %v", err)
	}
	if ok {
		t.Error("expected UTC to report no further transitions")
	}
}
