package providerfsm

import (
	"errors"
	"testing"
	"time"

	"tzoffline/internal/geozone"
	"tzoffline/internal/listeningbudget"
	"tzoffline/internal/providerenv"
)

func newHarness(t *testing.T) (*FSM, *providerenv.FakeEnvironment, *[]Result) {
	t.Helper()
	env := providerenv.New()
	finder := geozone.New(geozone.Box{MinLat: 0, MaxLat: 2, MinLng: 0, MaxLng: 2, ZoneIds: []string{"Europe/London"}})
	budget := listeningbudget.New()
	var results []Result
	fsm := New(env, finder, budget, func(r Result) { results = append(results, r) })
	return fsm, env, &results
}

// Happy path: a location arriving during the first active listen yields one Suggestion.
func TestOnStartThenLocationKnownDeliversOneSuggestion(t *testing.T) {
	fsm, env, results := newHarness(t)

	fsm.OnStart(20 * time.Second)
	env.DeliverLocationKnown(LocationSample{Lat: 1.0, Lng: 1.0})

	if len(*results) != 1 {
		t.Fatalf("expected exactly 1 result, got %d: %+v", len(*results), *results)
	}
	r := (*results)[0]
	if r.Kind != Suggestion {
		t.Fatalf("Kind = %v, want Suggestion", r.Kind)
	}
	if len(r.ZoneIds) != 1 || r.ZoneIds[0] != "Europe/London" {
		t.Errorf("ZoneIds = %v, want [Europe/London]", r.ZoneIds)
	}
	if fsm.State() != Started {
		t.Errorf("State() = %v, want Started", fsm.State())
	}
}

// Init timeout with no location delivers exactly one Uncertain, and a
// later active-listen timeout (another "not known") must not re-deliver.
func TestInitTimeoutDeliversUncertainOnce(t *testing.T) {
	fsm, env, results := newHarness(t)

	fsm.OnStart(1 * time.Second)
	env.Advance(1 * time.Second) // fires the initialization timeout

	if len(*results) != 1 {
		t.Fatalf("expected exactly 1 result after init timeout, got %d: %+v", len(*results), *results)
	}
	if (*results)[0].Kind != Uncertain {
		t.Fatalf("Kind = %v, want Uncertain", (*results)[0].Kind)
	}

	// A subsequent "location not known" (e.g. an active listen timing out)
	// must not re-deliver Uncertain: duplicate suppression on result kind.
	env.DeliverLocationNotKnown()
	if len(*results) != 1 {
		t.Fatalf("expected still exactly 1 result after a second not-known, got %d: %+v", len(*results), *results)
	}
}

// A "location not known" during the first active listen is kept silent
// while initialization is pending, but it must not swallow the init
// timeout's own Uncertain: the host is owed a result by the deadline.
func TestInitTimeoutStillDeliversUncertainAfterSilentNotKnown(t *testing.T) {
	fsm, env, results := newHarness(t)

	fsm.OnStart(1 * time.Second)
	env.DeliverLocationNotKnown() // silent: init pending, nothing delivered yet
	if len(*results) != 0 {
		t.Fatalf("expected the pre-timeout not-known to stay silent, got %+v", *results)
	}

	env.Advance(1 * time.Second)
	if len(*results) != 1 || (*results)[0].Kind != Uncertain {
		t.Fatalf("expected exactly one Uncertain at the init deadline, got %+v", *results)
	}
}

func TestDuplicateTokenSuppressesSecondSuggestion(t *testing.T) {
	fsm, env, results := newHarness(t)

	fsm.OnStart(20 * time.Second)
	env.DeliverLocationKnown(LocationSample{Lat: 1.0, Lng: 1.0})
	if len(*results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(*results))
	}

	// Re-deliver a location mapping to the same LocationToken: must not
	// deliver a second Suggestion.
	env.DeliverLocationKnown(LocationSample{Lat: 1.0, Lng: 1.0})
	if len(*results) != 1 {
		t.Fatalf("expected still exactly 1 result for a repeated token, got %d: %+v", len(*results), *results)
	}
}

func TestOnStopSuppressesFurtherResults(t *testing.T) {
	fsm, env, results := newHarness(t)

	fsm.OnStart(1 * time.Second)
	fsm.OnStop()
	if fsm.State() != Stopped {
		t.Fatalf("State() = %v, want Stopped", fsm.State())
	}

	// The initialization timeout that would have fired at t=1s must be a
	// no-op: it was cancelled by OnStop.
	env.Advance(2 * time.Second)
	if len(*results) != 0 {
		t.Fatalf("expected no results after stop, got %+v", *results)
	}
}

func TestOnDestroyFromStartedDeliversUncertain(t *testing.T) {
	fsm, _, results := newHarness(t)

	fsm.OnStart(20 * time.Second)
	fsm.OnDestroy()

	if len(*results) != 1 || (*results)[0].Kind != Uncertain {
		t.Fatalf("expected exactly one Uncertain on destroy, got %+v", *results)
	}
	if fsm.State() != Destroyed {
		t.Errorf("State() = %v, want Destroyed", fsm.State())
	}
}

func TestOnLookupFailureIsTerminal(t *testing.T) {
	fsm, _, results := newHarness(t)

	fsm.OnStart(20 * time.Second)
	cause := errors.New("geo lookup I/O error")
	fsm.OnLookupFailure(cause)

	if len(*results) != 1 || (*results)[0].Kind != PermanentFailure {
		t.Fatalf("expected exactly one PermanentFailure, got %+v", *results)
	}
	if (*results)[0].Cause != cause {
		t.Errorf("Cause = %v, want %v", (*results)[0].Cause, cause)
	}
	if fsm.State() != Failed {
		t.Errorf("State() = %v, want Failed", fsm.State())
	}
}

func TestStartWhenAlreadyStartedPanics(t *testing.T) {
	fsm, _, _ := newHarness(t)
	fsm.OnStart(20 * time.Second)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected OnStart on an already-Started FSM to panic (host protocol violation)")
		}
	}()
	fsm.OnStart(20 * time.Second)
}

func TestPassiveEndedAccruesBudgetAndReplans(t *testing.T) {
	fsm, env, _ := newHarness(t)

	// First plan is always active (budget starts at MinimumActiveListeningDuration);
	// deliver a location so the next plan falls through to passive listening.
	fsm.OnStart(20 * time.Second)
	env.DeliverLocationKnown(LocationSample{Lat: 1.0, Lng: 1.0})
	if fsm.mode != listeningbudget.Passive {
		t.Fatalf("expected Passive mode once a location was just reported known (age 0 < LocationKnownAgeThreshold), got %v", fsm.mode)
	}

	env.EndPassiveListen(2 * time.Minute)
	if fsm.State() != Started {
		t.Fatalf("State() = %v, want Started after OnPassiveEnded", fsm.State())
	}
}
