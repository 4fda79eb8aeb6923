package gate

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func mustTransition(t *testing.T, s State, kind EventKind, when time.Time) State {
	t.Helper()
	next, err := Transition(s, Event{Kind: kind, At: when})
	if err != nil {
		t.Fatalf("%s from %s(%d): %v", kind, s.Phase, s.Step, err)
	}
	return next
}

func TestNewState_ClampsSteps(t *testing.T) {
	tests := []struct {
		steps, wait         int
		wantSteps, wantWait int
	}{
		{0, 5, 1, 5},
		{-4, 5, 1, 5},
		{3, -1, 3, 0},
		{5, 10, 5, 10},
	}
	for _, tt := range tests {
		s := NewState(tt.steps, tt.wait)
		if s.TotalSteps != tt.wantSteps || s.WaitSeconds != tt.wantWait || s.Phase != PhaseResolving {
			t.Errorf("NewState(%d,%d) = %+v", tt.steps, tt.wait, s)
		}
	}
}

func TestTransition_Resolution(t *testing.T) {
	s := NewState(2, 5)

	missing := mustTransition(t, s, EventMissing, t0)
	if missing.Phase != PhaseNotFound {
		t.Errorf("got %s, want NOT_FOUND", missing.Phase)
	}
	if _, err := Transition(missing, Event{Kind: EventTick, At: t0}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("NOT_FOUND is terminal, got %v", err)
	}

	found := mustTransition(t, s, EventResolved, t0)
	if found.Phase != PhaseCounting || found.Step != 1 || !found.StepStartedAt.Equal(t0) {
		t.Errorf("unexpected state after resolve: %+v", found)
	}
}

func TestTransition_StepOrdering(t *testing.T) {
	s := mustTransition(t, NewState(2, 5), EventResolved, t0)

	// Countdown not finished: verify and continue are locked.
	for _, kind := range []EventKind{EventVerify, EventContinue} {
		if _, err := Transition(s, Event{Kind: kind, At: at(4)}); !errors.Is(err, ErrStepLocked) {
			t.Errorf("%s during countdown: got %v, want ErrStepLocked", kind, err)
		}
	}
	if still := mustTransition(t, s, EventTick, at(4)); still.Phase != PhaseCounting {
		t.Errorf("tick before wait elapsed moved to %s", still.Phase)
	}

	s = mustTransition(t, s, EventTick, at(5))
	if s.Phase != PhaseVerifying {
		t.Fatalf("got %s after wait, want VERIFYING", s.Phase)
	}
	if _, err := Transition(s, Event{Kind: EventContinue, At: at(6)}); !errors.Is(err, ErrStepLocked) {
		t.Errorf("continue before verify: got %v", err)
	}

	s = mustTransition(t, s, EventVerify, at(6))
	if s.Phase != PhaseUnlocked || s.Step != 1 {
		t.Fatalf("got %s(%d), want UNLOCKED(1)", s.Phase, s.Step)
	}

	s = mustTransition(t, s, EventContinue, at(7))
	if s.Phase != PhaseCounting || s.Step != 2 || !s.StepStartedAt.Equal(at(7)) {
		t.Fatalf("continue must reset the timer for step 2, got %+v", s)
	}

	s = mustTransition(t, s, EventTick, at(12))
	s = mustTransition(t, s, EventVerify, at(12))
	s = mustTransition(t, s, EventContinue, at(13))
	if s.Phase != PhaseFinalized {
		t.Fatalf("got %s, want FINALIZED", s.Phase)
	}

	if again := mustTransition(t, s, EventContinue, at(20)); again.Phase != PhaseFinalized {
		t.Errorf("continue on FINALIZED must be a no-op, got %s", again.Phase)
	}
	if _, err := Transition(s, Event{Kind: EventVerify, At: at(20)}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("verify on FINALIZED: got %v", err)
	}
}

func TestTransition_ZeroWaitUnlocksOnFirstTick(t *testing.T) {
	s := mustTransition(t, NewState(1, 0), EventResolved, t0)
	s = mustTransition(t, s, EventTick, t0)
	if s.Phase != PhaseVerifying {
		t.Errorf("got %s, want VERIFYING", s.Phase)
	}
}

func TestProgressAndRemaining(t *testing.T) {
	s := mustTransition(t, NewState(1, 10), EventResolved, t0)

	tests := []struct {
		name          string
		now           time.Time
		wantProgress  float64
		wantRemaining int
	}{
		{"at start", t0, 0, 10},
		{"clock skew before start", at(-3), 0, 10},
		{"halfway", at(5), 0.5, 5},
		{"fractional second rounds up", t0.Add(7500 * time.Millisecond), 0.75, 3},
		{"past deadline", at(30), 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(s, tt.now); got != tt.wantProgress {
				t.Errorf("progress = %v, want %v", got, tt.wantProgress)
			}
			if got := Remaining(s, tt.now); got != tt.wantRemaining {
				t.Errorf("remaining = %d, want %d", got, tt.wantRemaining)
			}
		})
	}

	unlocked := State{Phase: PhaseUnlocked, Step: 1, TotalSteps: 1}
	if Progress(unlocked, t0) != 1 || Remaining(unlocked, t0) != 0 {
		t.Error("unlocked step must report full progress")
	}
}
