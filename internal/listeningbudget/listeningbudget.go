// Package listeningbudget meters active-vs-passive location listening
// credit so the always-on provider stays power-friendly.
package listeningbudget

import (
	"time"

	"go.uber.org/atomic"
)

const (
	// PassiveToActiveRatio converts accrued passive listening time into
	// active listening credit.
	PassiveToActiveRatio = 90

	LocationKnownAgeThreshold    = 15 * time.Minute
	LocationNotKnownAgeThreshold = time.Minute

	MinimumPassiveListeningDuration = 2 * time.Minute
	MinimumActiveListeningDuration  = 5 * time.Second
	MaximumActiveListeningDuration  = 10 * time.Second

	MaxActiveListeningBudget = 4 * MaximumActiveListeningDuration
)

// Mode is the kind of listening ProviderFSM should perform next.
type Mode int

const (
	Active Mode = iota
	Passive
)

func (m Mode) String() string {
	if m == Active {
		return "Active"
	}
	return "Passive"
}

// Plan is the outcome of a planning decision.
type Plan struct {
	Mode     Mode
	Duration time.Duration
}

// LastResult carries just what planning needs to know about the most
// recent delivered result, if any.
type LastResult struct {
	Timestamp     time.Duration // elapsed-realtime at delivery
	LocationKnown bool
}

// Budget meters active-listening credit in a single int64 of
// nanoseconds via atomic.Int64, so it is safe to read from outside the
// provider thread (e.g. diagnostics/metrics) even though all writes are
// expected to originate on it.
type Budget struct {
	ns atomic.Int64
}

// New returns a Budget initialised so the very first Plan is active.
func New() *Budget {
	b := &Budget{}
	b.ns.Store(int64(MinimumActiveListeningDuration))
	return b
}

func (b *Budget) cap(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > int64(MaxActiveListeningBudget) {
		return int64(MaxActiveListeningBudget)
	}
	return v
}

// Remaining returns the current budget.
func (b *Budget) Remaining() time.Duration { return time.Duration(b.ns.Load()) }

// Accrue credits passiveDuration/PassiveToActiveRatio of active budget.
func (b *Budget) Accrue(passiveDuration time.Duration) {
	credit := int64(passiveDuration) / PassiveToActiveRatio
	for {
		cur := b.ns.Load()
		next := b.cap(cur + credit)
		if b.ns.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Deposit refunds unusedActiveDuration, e.g. when an active request
// returns early.
func (b *Budget) Deposit(unusedActiveDuration time.Duration) {
	for {
		cur := b.ns.Load()
		next := b.cap(cur + int64(unusedActiveDuration))
		if b.ns.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (b *Budget) debit(amount time.Duration) {
	for {
		cur := b.ns.Load()
		next := b.cap(cur - int64(amount))
		if b.ns.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Plan decides the next listening mode: passive while the last result
// is fresh, active while budget allows, passive otherwise. An active
// plan debits its duration up front; OnLocationKnown refunds the
// unused part via Deposit.
func (b *Budget) Plan(nowElapsed time.Duration, last *LastResult) Plan {
	age := time.Duration(1<<63 - 1)
	if last != nil {
		age = nowElapsed - last.Timestamp
	}

	switch {
	case last != nil && last.LocationKnown && age < LocationKnownAgeThreshold:
		return Plan{Mode: Passive, Duration: MinimumPassiveListeningDuration}
	case last != nil && !last.LocationKnown && age < LocationNotKnownAgeThreshold:
		return Plan{Mode: Passive, Duration: MinimumPassiveListeningDuration}
	}

	if b.Remaining() >= MinimumActiveListeningDuration {
		d := b.Remaining()
		if d > MaximumActiveListeningDuration {
			d = MaximumActiveListeningDuration
		}
		b.debit(d)
		return Plan{Mode: Active, Duration: d}
	}

	return Plan{Mode: Passive, Duration: MinimumPassiveListeningDuration}
}
