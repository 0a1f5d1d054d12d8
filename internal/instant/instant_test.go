package instant

import (
	"testing"
	"time"
)

func TestOfAndTimeRoundTrip(t *testing.T) {
	want := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	i := Of(want)
	got := i.Time()
	if !got.Equal(want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}

func TestAddSaturatesHigh(t *testing.T) {
	i := maxInstant - 10
	got := i.Add(time.Hour * 1000000)
	if got != maxInstant {
		t.Errorf("Add() = %v, want saturated maxInstant %v", got, maxInstant)
	}
}

func TestAddSaturatesLow(t *testing.T) {
	i := minInstant + 10
	got := i.Add(-time.Hour * 1000000)
	if got != minInstant {
		t.Errorf("Add() = %v, want saturated minInstant %v", got, minInstant)
	}
}

func TestAddOrdinary(t *testing.T) {
	i := Of(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	got := i.Add(24 * time.Hour)
	want := Of(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC))
	if got != want {
		t.Errorf("Add(24h) = %v, want %v", got, want)
	}
}

func TestBeforeAfter(t *testing.T) {
	earlier := Of(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	later := Of(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))

	if !earlier.Before(later) {
		t.Error("expected earlier.Before(later)")
	}
	if earlier.After(later) {
		t.Error("did not expect earlier.After(later)")
	}
	if !later.After(earlier) {
		t.Error("expected later.After(earlier)")
	}
}

func TestAddYears(t *testing.T) {
	i := Of(time.Date(2020, 2, 29, 12, 0, 0, 0, time.UTC))
	got := i.AddYears(1)
	want := Of(time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC))
	if got != want {
		t.Errorf("AddYears(1) = %v, want %v", got, want)
	}
}

func TestMaxInstantValue(t *testing.T) {
	want := time.Date(2038, 1, 19, 3, 14, 7, 0, time.UTC)
	got := MaxInstant.Time()
	if !got.Equal(want) {
		t.Errorf("MaxInstant = %v, want %v", got, want)
	}
}
