// Package providerfsm implements the online location-time-zone
// provider state machine. It consumes intermittent coarse-location
// samples and a listening budget to decide when to actively or
// passively listen, and delivers Suggestion/Uncertain/PermanentFailure
// results to its host.
package providerfsm

import (
	"fmt"
	"time"

	"tzoffline/internal/listeningbudget"
	"tzoffline/internal/providershared"
)

// LocationToken is an opaque, hashable region identifier coarser than a
// raw lat/lng, intended to match an S2 cell.
type LocationToken = providershared.LocationToken

// LocationSample is a coarse location observation.
type LocationSample = providershared.LocationSample

// Cancellable is returned by every scheduled Environment operation and
// must be safe to Cancel multiple times.
type Cancellable = providershared.Cancellable

// Environment is the collaborator providing scheduled callbacks and
// location listening, kept free of wall-clock sleeps so it can be
// faked deterministically in tests.
type Environment interface {
	ScheduleTimeout(delay time.Duration, fn func()) Cancellable
	ListenActive(duration time.Duration, onResult func(loc *LocationSample, elapsed time.Duration)) Cancellable
	ListenPassive(duration time.Duration, onResult func(loc *LocationSample, elapsed time.Duration), onEnd func(actualDuration time.Duration)) Cancellable
}

// GeoZoneFinder converts a coarse location into a token and a token
// into an ordered (possibly empty) list of zone ids.
type GeoZoneFinder interface {
	TokenFor(lat, lng float64) LocationToken
	ZonesFor(token LocationToken) []string
}

// ResultKind distinguishes the three kinds of result delivered to the host.
type ResultKind int

const (
	Suggestion ResultKind = iota
	Uncertain
	PermanentFailure
)

func (k ResultKind) String() string {
	switch k {
	case Suggestion:
		return "Suggestion"
	case Uncertain:
		return "Uncertain"
	default:
		return "PermanentFailure"
	}
}

// Result is delivered to the host via the Listener callback.
type Result struct {
	Kind              ResultKind
	ZoneIds           []string
	ElapsedRealtimeMs int64
	Cause             error
}

// State is the provider's lifecycle state.
type State int

const (
	Stopped State = iota
	Started
	Failed
	Destroyed
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Started:
		return "Started"
	case Failed:
		return "Failed"
	default:
		return "Destroyed"
	}
}

const noResultKind = ResultKind(-1)

// FSM is the location-time-zone provider state machine. Not safe for
// concurrent use: every event must be delivered on a single execution
// context, the provider thread.
type FSM struct {
	env      Environment
	finder   GeoZoneFinder
	budget   *listeningbudget.Budget
	onResult func(Result)

	state State
	mode  listeningbudget.Mode

	generation   int
	initTimeout  Cancellable
	listenHandle Cancellable

	delivered      bool
	lastResultKind ResultKind
	lastToken      LocationToken
	hasLastToken   bool

	lastResult    *listeningbudget.LastResult
	planDuration  time.Duration
	planStartedAt time.Duration
	clock         time.Duration
}

// New constructs an FSM in the Stopped state.
func New(env Environment, finder GeoZoneFinder, budget *listeningbudget.Budget, onResult func(Result)) *FSM {
	return &FSM{
		env:            env,
		finder:         finder,
		budget:         budget,
		onResult:       onResult,
		state:          Stopped,
		lastResultKind: noResultKind,
	}
}

// OnBind is a lifecycle hook with no state transition of its own.
func (f *FSM) OnBind() {}

func (f *FSM) protocolViolation(event string) {
	panic(fmt.Sprintf("providerfsm: %s is invalid in state %s", event, f.state))
}

// OnStart transitions Stopped -> Started and schedules the
// initialization timeout and the first listen.
func (f *FSM) OnStart(initTimeout time.Duration) {
	if f.state != Stopped {
		f.protocolViolation("onStart")
	}
	f.generation++
	f.delivered = false
	f.lastResultKind = noResultKind
	f.hasLastToken = false
	f.lastResult = nil
	f.clock = 0

	gen := f.generation
	f.initTimeout = f.env.ScheduleTimeout(initTimeout, func() {
		if gen != f.generation {
			return // stale: cancelled or superseded by a later run
		}
		f.onInitializationTimeout()
	})

	f.state = Started
	f.planAndSubscribe(f.clock)
}

func (f *FSM) cancelAll() {
	if f.initTimeout != nil {
		f.initTimeout.Cancel()
		f.initTimeout = nil
	}
	if f.listenHandle != nil {
		f.listenHandle.Cancel()
		f.listenHandle = nil
	}
}

// OnStop cancels all outstanding callbacks, discards the last-location
// cache, and returns to Stopped.
func (f *FSM) OnStop() {
	f.generation++
	f.cancelAll()
	f.hasLastToken = false
	f.lastResult = nil
	f.state = Stopped
}

// OnDestroy cancels callbacks, delivers Uncertain if a run was active,
// and moves to the terminal Destroyed state.
func (f *FSM) OnDestroy() {
	f.generation++
	f.cancelAll()
	if f.state == Started {
		f.deliverUncertain(f.clock)
	}
	f.state = Destroyed
}

// OnLocationKnown delivers a Suggestion (subject to duplicate
// suppression), refunds unused active budget, cancels the
// initialization timeout, and re-plans.
func (f *FSM) OnLocationKnown(loc LocationSample, elapsed time.Duration) {
	if f.state != Started {
		return // stale callback from a superseded run
	}
	f.clock = elapsed

	if f.mode == listeningbudget.Active {
		elapsedInListen := elapsed - f.planStartedAt
		if unused := f.planDuration - elapsedInListen; unused > 0 {
			f.budget.Deposit(unused)
		}
	}

	token := f.finder.TokenFor(loc.Lat, loc.Lng)
	zones := f.finder.ZonesFor(token)
	f.deliverSuggestion(token, zones, elapsed)

	if f.initTimeout != nil {
		f.initTimeout.Cancel()
		f.initTimeout = nil
	}

	f.lastResult = &listeningbudget.LastResult{Timestamp: elapsed, LocationKnown: true}
	f.planAndSubscribe(elapsed)
}

// OnLocationNotKnown delivers Uncertain (subject to duplicate
// suppression) and re-plans. During an active listen it stays silent
// while the initialization timeout is pending and nothing has been
// delivered yet in this run; during a passive listen it always delivers.
func (f *FSM) OnLocationNotKnown(elapsed time.Duration) {
	if f.state != Started {
		return
	}
	f.clock = elapsed

	initPending := f.initTimeout != nil
	if !(f.mode == listeningbudget.Active && !f.delivered && initPending) {
		f.deliverUncertain(elapsed)
	}

	f.lastResult = &listeningbudget.LastResult{Timestamp: elapsed, LocationKnown: false}
	f.planAndSubscribe(elapsed)
}

// OnPassiveEnded credits the budget for a completed passive listen and
// re-plans.
func (f *FSM) OnPassiveEnded(actualDuration time.Duration) {
	if f.state != Started || f.mode != listeningbudget.Passive {
		return
	}
	f.budget.Accrue(actualDuration)
	f.clock += actualDuration
	f.planAndSubscribe(f.clock)
}

func (f *FSM) onInitializationTimeout() {
	if f.state != Started {
		return
	}
	if !f.delivered {
		f.deliverUncertain(f.clock)
	}
	f.initTimeout = nil
}

// OnLookupFailure is terminal: it delivers PermanentFailure and moves
// to Failed.
func (f *FSM) OnLookupFailure(err error) {
	if f.state != Started {
		return
	}
	f.generation++
	f.cancelAll()
	f.onResult(Result{Kind: PermanentFailure, Cause: err})
	f.state = Failed
}

func (f *FSM) deliverSuggestion(token LocationToken, zoneIds []string, elapsed time.Duration) {
	if f.hasLastToken && f.lastToken == token && f.lastResultKind == Suggestion {
		return
	}
	f.hasLastToken = true
	f.lastToken = token
	f.lastResultKind = Suggestion
	f.delivered = true
	f.onResult(Result{Kind: Suggestion, ZoneIds: zoneIds, ElapsedRealtimeMs: elapsed.Milliseconds()})
}

func (f *FSM) deliverUncertain(elapsed time.Duration) {
	if f.lastResultKind == Uncertain {
		return
	}
	f.lastResultKind = Uncertain
	f.delivered = true
	f.onResult(Result{Kind: Uncertain, ElapsedRealtimeMs: elapsed.Milliseconds()})
}

func (f *FSM) planAndSubscribe(elapsed time.Duration) {
	if f.listenHandle != nil {
		f.listenHandle.Cancel()
		f.listenHandle = nil
	}

	plan := f.budget.Plan(elapsed, f.lastResult)
	f.mode = plan.Mode
	f.planDuration = plan.Duration
	f.planStartedAt = elapsed

	gen := f.generation
	switch plan.Mode {
	case listeningbudget.Active:
		f.listenHandle = f.env.ListenActive(plan.Duration, func(loc *LocationSample, elapsed time.Duration) {
			if gen != f.generation {
				return
			}
			if loc != nil {
				f.OnLocationKnown(*loc, elapsed)
			} else {
				f.OnLocationNotKnown(elapsed)
			}
		})
	case listeningbudget.Passive:
		f.listenHandle = f.env.ListenPassive(plan.Duration, func(loc *LocationSample, elapsed time.Duration) {
			if gen != f.generation {
				return
			}
			if loc != nil {
				f.OnLocationKnown(*loc, elapsed)
			} else {
				f.OnLocationNotKnown(elapsed)
			}
		}, func(actualDuration time.Duration) {
			if gen != f.generation {
				return
			}
			f.OnPassiveEnded(actualDuration)
		})
	}
}

// State returns the current lifecycle state, for host introspection/tests.
func (f *FSM) State() State { return f.state }
