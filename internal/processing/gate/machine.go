package gate

import (
	"errors"
	"math"
	"time"
)

type Phase string

const (
	PhaseResolving Phase = "RESOLVING"
	PhaseNotFound  Phase = "NOT_FOUND"
	PhaseCounting  Phase = "COUNTING"
	PhaseVerifying Phase = "VERIFYING"
	PhaseUnlocked  Phase = "UNLOCKED"
	PhaseFinalized Phase = "FINALIZED"
)

type EventKind string

const (
	EventResolved EventKind = "resolved"
	EventMissing  EventKind = "missing"
	EventTick     EventKind = "tick"
	EventVerify   EventKind = "verify"
	EventContinue EventKind = "continue"
)

type Event struct {
	Kind EventKind
	At   time.Time
}

var (
	ErrStepLocked        = errors.New("step is not unlocked yet")
	ErrInvalidTransition = errors.New("invalid gate transition")
)

// State is one traversal's position in the gate sequence. Step is 1-based
// and only meaningful in Counting, Verifying and Unlocked.
type State struct {
	Phase         Phase     `json:"phase"`
	Step          int       `json:"step"`
	TotalSteps    int       `json:"totalSteps"`
	WaitSeconds   int       `json:"waitSeconds"`
	StepStartedAt time.Time `json:"stepStartedAt"`
}

// NewState snapshots the gate configuration for one traversal.
func NewState(totalSteps, waitSeconds int) State {
	if totalSteps <= 0 {
		totalSteps = 1
	}
	if waitSeconds < 0 {
		waitSeconds = 0
	}
	return State{Phase: PhaseResolving, TotalSteps: totalSteps, WaitSeconds: waitSeconds}
}

// Transition applies ev to s. It has no side effects; callers own the clock
// through Event.At.
func Transition(s State, ev Event) (State, error) {
	switch s.Phase {
	case PhaseResolving:
		switch ev.Kind {
		case EventResolved:
			return startStep(s, 1, ev.At), nil
		case EventMissing:
			s.Phase = PhaseNotFound
			return s, nil
		}

	case PhaseCounting:
		switch ev.Kind {
		case EventTick:
			if elapsed(s, ev.At) >= s.wait() {
				s.Phase = PhaseVerifying
			}
			return s, nil
		case EventVerify, EventContinue:
			return s, ErrStepLocked
		}

	case PhaseVerifying:
		switch ev.Kind {
		case EventTick:
			return s, nil
		case EventVerify:
			s.Phase = PhaseUnlocked
			return s, nil
		case EventContinue:
			return s, ErrStepLocked
		}

	case PhaseUnlocked:
		switch ev.Kind {
		case EventTick, EventVerify:
			return s, nil
		case EventContinue:
			if s.Step < s.TotalSteps {
				return startStep(s, s.Step+1, ev.At), nil
			}
			s.Phase = PhaseFinalized
			return s, nil
		}

	case PhaseFinalized:
		if ev.Kind == EventTick || ev.Kind == EventContinue {
			return s, nil
		}
	}

	return s, ErrInvalidTransition
}

// Progress is the observed fraction of the current step's wait, in [0,1].
func Progress(s State, now time.Time) float64 {
	switch s.Phase {
	case PhaseCounting:
		wait := s.wait()
		if wait <= 0 {
			return 1
		}
		p := float64(elapsed(s, now)) / float64(wait)
		return math.Max(0, math.Min(1, p))
	case PhaseVerifying, PhaseUnlocked, PhaseFinalized:
		return 1
	}
	return 0
}

// Remaining is the whole seconds left before the current step can be verified.
func Remaining(s State, now time.Time) int {
	if s.Phase != PhaseCounting {
		return 0
	}
	left := s.wait() - elapsed(s, now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func startStep(s State, step int, at time.Time) State {
	s.Phase = PhaseCounting
	s.Step = step
	s.StepStartedAt = at
	return s
}

func elapsed(s State, now time.Time) time.Duration {
	d := now.Sub(s.StepStartedAt)
	if d < 0 {
		return 0
	}
	return d
}

func (s State) wait() time.Duration {
	return time.Duration(s.WaitSeconds) * time.Second
}
