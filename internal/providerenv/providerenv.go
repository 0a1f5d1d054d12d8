// Package providerenv provides a deterministic, virtual-clock
// Environment test double for the provider state machine, so budget
// and timeout logic is testable without real sleeps.
package providerenv

import (
	"time"

	"tzoffline/internal/providershared"
)

type token uint64

type cancellable struct {
	env *FakeEnvironment
	id  token
}

func (c cancellable) Cancel() {
	delete(c.env.pending, c.id)
}

type scheduledTimeout struct {
	at time.Duration
	fn func()
}

// FakeEnvironment is a single-threaded virtual clock: nothing fires
// until Advance is called, and callbacks run synchronously on the
// calling goroutine in deadline order.
type FakeEnvironment struct {
	now      time.Duration
	nextID   token
	pending  map[token]struct{}
	timeouts map[token]scheduledTimeout

	// Callbacks of the most recent listen session; tests drive its
	// outcome through DeliverLocationKnown, DeliverLocationNotKnown and
	// EndPassiveListen.
	onActiveResult  func(loc *providershared.LocationSample, elapsed time.Duration)
	onPassiveResult func(loc *providershared.LocationSample, elapsed time.Duration)
	onPassiveEnd    func(actualDuration time.Duration)
}

// New returns a FakeEnvironment with its virtual clock at zero.
func New() *FakeEnvironment {
	return &FakeEnvironment{
		pending:  map[token]struct{}{},
		timeouts: map[token]scheduledTimeout{},
	}
}

// Now returns the current virtual elapsed time.
func (e *FakeEnvironment) Now() time.Duration { return e.now }

func (e *FakeEnvironment) ScheduleTimeout(delay time.Duration, fn func()) providershared.Cancellable {
	e.nextID++
	id := e.nextID
	e.pending[id] = struct{}{}
	e.timeouts[id] = scheduledTimeout{at: e.now + delay, fn: fn}
	return cancellable{env: e, id: id}
}

func (e *FakeEnvironment) ListenActive(duration time.Duration, onResult func(loc *providershared.LocationSample, elapsed time.Duration)) providershared.Cancellable {
	e.nextID++
	id := e.nextID
	e.pending[id] = struct{}{}
	e.onActiveResult = onResult
	e.onPassiveResult = nil
	e.onPassiveEnd = nil
	return cancellable{env: e, id: id}
}

func (e *FakeEnvironment) ListenPassive(duration time.Duration, onResult func(loc *providershared.LocationSample, elapsed time.Duration), onEnd func(actualDuration time.Duration)) providershared.Cancellable {
	e.nextID++
	id := e.nextID
	e.pending[id] = struct{}{}
	e.onPassiveResult = onResult
	e.onPassiveEnd = onEnd
	e.onActiveResult = nil
	return cancellable{env: e, id: id}
}

// DeliverLocationKnown invokes whichever listen callback is currently
// active (active or passive) as if loc arrived at the current clock.
func (e *FakeEnvironment) DeliverLocationKnown(loc providershared.LocationSample) {
	if e.onActiveResult != nil {
		e.onActiveResult(&loc, e.now)
		return
	}
	if e.onPassiveResult != nil {
		e.onPassiveResult(&loc, e.now)
	}
}

// DeliverLocationNotKnown invokes whichever listen callback is
// currently active with a nil location.
func (e *FakeEnvironment) DeliverLocationNotKnown() {
	if e.onActiveResult != nil {
		e.onActiveResult(nil, e.now)
		return
	}
	if e.onPassiveResult != nil {
		e.onPassiveResult(nil, e.now)
	}
}

// Advance moves the virtual clock forward by d, firing every scheduled
// timeout whose deadline falls within the new window, in deadline
// order. A passive listen's end is not fired here; see EndPassiveListen.
func (e *FakeEnvironment) Advance(d time.Duration) {
	target := e.now + d
	for {
		var dueID token
		var due *scheduledTimeout
		for id, t := range e.timeouts {
			if _, stillPending := e.pending[id]; !stillPending {
				continue
			}
			if t.at <= target && (due == nil || t.at < due.at) {
				tCopy := t
				due = &tCopy
				dueID = id
			}
		}
		if due == nil {
			break
		}
		delete(e.pending, dueID)
		delete(e.timeouts, dueID)
		e.now = due.at
		due.fn()
	}
	e.now = target
}

// EndPassiveListen fires the passive-listen onEnd callback with the
// given actual duration, as if the listen window elapsed naturally.
func (e *FakeEnvironment) EndPassiveListen(actualDuration time.Duration) {
	if e.onPassiveEnd != nil {
		fn := e.onPassiveEnd
		e.onPassiveResult = nil
		e.onPassiveEnd = nil
		fn(actualDuration)
	}
}
