package gate

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/metrics"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/ledger"
	"go.uber.org/zap"
)

const lockStripes = 64

// View is what a visitor sees of their traversal.
type View struct {
	TraversalID      string        `json:"traversalId"`
	ShortCode        string        `json:"shortCode"`
	Phase            Phase         `json:"phase"`
	Step             int           `json:"step"`
	TotalSteps       int           `json:"totalSteps"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Progress         float64       `json:"progress"`
	Ads              model.AdSlots `json:"ads"`
	Destination      string        `json:"destination,omitempty"`
}

type Engine struct {
	sessions SessionStore
	links    LinkResolver
	settings SettingsSource
	ledger   Finalizer
	now      func() time.Time
	newID    func() string

	// Serializes events per traversal within this process.
	locks [lockStripes]sync.Mutex
}

func NewEngine(sessions SessionStore, links LinkResolver, settings SettingsSource, finalizer Finalizer) *Engine {
	return &Engine{
		sessions: sessions,
		links:    links,
		settings: settings,
		ledger:   finalizer,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// WithClock replaces the engine's time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Start resolves code and opens a traversal at step 1. Unknown codes return
// ErrNotFound and persist nothing.
func (e *Engine) Start(ctx context.Context, code string, meta model.ClientMeta) (View, error) {
	cfg := e.settings.Get(ctx)
	state := NewState(cfg.TotalSteps, cfg.WaitSeconds)
	now := e.now()

	link, err := e.links.FindByShortCode(ctx, code)
	if err != nil || link == nil {
		state, _ = Transition(state, Event{Kind: EventMissing, At: now})
		metrics.GateTransitions.WithLabelValues(string(state.Phase)).Inc()
		return View{ShortCode: code, Phase: state.Phase}, ErrNotFound
	}

	state, err = Transition(state, Event{Kind: EventResolved, At: now})
	if err != nil {
		return View{}, err
	}

	sess := &Session{
		ID:          e.newID(),
		LinkID:      link.ID,
		OwnerID:     link.UserID,
		ShortCode:   link.ShortCode,
		Destination: link.OriginalURL,
		State:       state,
		Meta:        meta,
		Ads:         cfg.Ads,
		CreatedAt:   now.UTC(),
	}
	if err := e.sessions.Save(ctx, sess); err != nil {
		return View{}, err
	}

	metrics.GateTransitions.WithLabelValues(string(state.Phase)).Inc()
	logger.Debug("traversal started",
		zap.String("traversal_id", sess.ID),
		zap.String("code", sess.ShortCode),
		zap.Int("total_steps", state.TotalSteps),
	)
	return e.view(sess, now), nil
}

// Get observes the traversal, advancing a finished countdown.
func (e *Engine) Get(ctx context.Context, id string) (View, error) {
	return e.apply(ctx, id, EventTick)
}

func (e *Engine) Verify(ctx context.Context, id string) (View, error) {
	return e.apply(ctx, id, EventVerify)
}

// Continue moves past an unlocked step. On the last step the click is
// finalized in the ledger before the traversal is marked Finalized, so a
// failed ledger write leaves the step unlocked and retryable.
func (e *Engine) Continue(ctx context.Context, id string) (View, error) {
	return e.apply(ctx, id, EventContinue)
}

func (e *Engine) apply(ctx context.Context, id string, kind EventKind) (View, error) {
	mu := e.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.sessions.Get(ctx, id)
	if err != nil {
		return View{}, err
	}

	now := e.now()
	before := sess.State

	// Observation is lazy: the countdown is evaluated on every event.
	state, err := Transition(sess.State, Event{Kind: EventTick, At: now})
	if err != nil {
		return View{}, err
	}
	if kind != EventTick {
		state, err = Transition(state, Event{Kind: kind, At: now})
		if err != nil {
			// Persist an elapsed countdown even when the requested event is rejected.
			if state.Phase != before.Phase {
				sess.State = state
				_ = e.sessions.Save(ctx, sess)
			}
			return e.viewWith(sess, state, now), err
		}
	}

	if state.Phase == PhaseFinalized && before.Phase != PhaseFinalized {
		ev, err := e.ledger.Finalize(ctx, ledger.FinalizeInput{
			TraversalID: sess.ID,
			LinkID:      sess.LinkID,
			OwnerID:     sess.OwnerID,
			ShortCode:   sess.ShortCode,
			Meta:        sess.Meta,
		})
		if err != nil {
			return e.viewWith(sess, before, now), err
		}
		sess.ClickID = ev.ID
	}

	if state != before {
		sess.State = state
		if err := e.sessions.Save(ctx, sess); err != nil {
			return View{}, err
		}
		if state.Phase != before.Phase || state.Step != before.Step {
			metrics.GateTransitions.WithLabelValues(string(state.Phase)).Inc()
		}
	}

	return e.view(sess, now), nil
}

func (e *Engine) view(sess *Session, now time.Time) View {
	return e.viewWith(sess, sess.State, now)
}

func (e *Engine) viewWith(sess *Session, s State, now time.Time) View {
	v := View{
		TraversalID:      sess.ID,
		ShortCode:        sess.ShortCode,
		Phase:            s.Phase,
		Step:             s.Step,
		TotalSteps:       s.TotalSteps,
		RemainingSeconds: Remaining(s, now),
		Progress:         Progress(s, now),
		Ads:              sess.Ads,
	}
	if s.Phase == PhaseFinalized {
		v.Destination = sess.Destination
	}
	return v
}

func (e *Engine) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &e.locks[h.Sum32()%lockStripes]
}

// IsClientError reports whether err is caused by the visitor's request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrStepLocked) || errors.Is(err, ErrInvalidTransition)
}
