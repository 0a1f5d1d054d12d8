package listeningbudget

import (
	"testing"
	"time"
)

func TestNewBudgetPlansActiveFirst(t *testing.T) {
	b := New()
	if got := b.Remaining(); got != MinimumActiveListeningDuration {
		t.Fatalf("Remaining() = %v, want %v", got, MinimumActiveListeningDuration)
	}

	plan := b.Plan(0, nil)
	if plan.Mode != Active {
		t.Fatalf("Plan().Mode = %v, want Active", plan.Mode)
	}
	if plan.Duration < MinimumActiveListeningDuration {
		t.Errorf("Active plan duration %v below minimum %v", plan.Duration, MinimumActiveListeningDuration)
	}
}

func TestPlanRecentKnownLocationStaysPassive(t *testing.T) {
	b := New()
	last := &LastResult{Timestamp: 0, LocationKnown: true}

	plan := b.Plan(LocationKnownAgeThreshold-time.Second, last)
	if plan.Mode != Passive {
		t.Fatalf("Plan().Mode = %v, want Passive", plan.Mode)
	}
	if plan.Duration != MinimumPassiveListeningDuration {
		t.Errorf("Duration = %v, want %v", plan.Duration, MinimumPassiveListeningDuration)
	}
}

func TestPlanRecentNotKnownStaysPassive(t *testing.T) {
	b := New()
	last := &LastResult{Timestamp: 0, LocationKnown: false}

	plan := b.Plan(LocationNotKnownAgeThreshold-time.Millisecond, last)
	if plan.Mode != Passive {
		t.Fatalf("Plan().Mode = %v, want Passive", plan.Mode)
	}
}

func TestPlanStaleResultFallsBackToActiveWhenBudgetAvailable(t *testing.T) {
	b := New()
	last := &LastResult{Timestamp: 0, LocationKnown: true}

	// Age well past the known-location threshold: the recency rule no
	// longer applies, so planning falls through to the budget check.
	plan := b.Plan(LocationKnownAgeThreshold+time.Minute, last)
	if plan.Mode != Active {
		t.Fatalf("Plan().Mode = %v, want Active", plan.Mode)
	}
}

func TestPlanCapsActiveDurationAtMaximum(t *testing.T) {
	b := New()
	b.Deposit(MaxActiveListeningBudget) // push budget to its cap

	plan := b.Plan(0, nil)
	if plan.Mode != Active {
		t.Fatalf("Plan().Mode = %v, want Active", plan.Mode)
	}
	if plan.Duration != MaximumActiveListeningDuration {
		t.Errorf("Duration = %v, want the maximum %v", plan.Duration, MaximumActiveListeningDuration)
	}
	if b.Remaining() != MaxActiveListeningBudget-MaximumActiveListeningDuration {
		t.Errorf("Remaining() = %v after debiting the planned duration", b.Remaining())
	}
}

func TestPlanFallsBackToPassiveWhenBudgetBelowMinimum(t *testing.T) {
	b := New()
	b.debit(MinimumActiveListeningDuration) // drain below the active floor

	plan := b.Plan(0, nil)
	if plan.Mode != Passive {
		t.Fatalf("Plan().Mode = %v, want Passive", plan.Mode)
	}
	if plan.Duration != MinimumPassiveListeningDuration {
		t.Errorf("Duration = %v, want %v", plan.Duration, MinimumPassiveListeningDuration)
	}
}

func TestAccrueConvertsPassiveToActiveCredit(t *testing.T) {
	b := New()
	b.debit(b.Remaining()) // drain to zero

	b.Accrue(PassiveToActiveRatio * time.Second)
	if got := b.Remaining(); got != time.Second {
		t.Errorf("Remaining() = %v, want %v", got, time.Second)
	}
}

func TestBudgetNeverGoesNegativeOrExceedsCap(t *testing.T) {
	b := New()
	b.debit(MaxActiveListeningBudget * 10)
	if b.Remaining() < 0 {
		t.Errorf("Remaining() went negative: %v", b.Remaining())
	}

	b.Deposit(MaxActiveListeningBudget * 10)
	if b.Remaining() > MaxActiveListeningBudget {
		t.Errorf("Remaining() exceeded the cap: %v", b.Remaining())
	}
}
