package gate_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/gate"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/ledger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/links"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/settings"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	engine *gate.Engine
	store  *storage.Store
	clock  *clock
}

func newHarness(t *testing.T, steps, wait int, cpm float64) *harness {
	t.Helper()

	backend := memory.New()
	users, _ := json.Marshal([]model.User{{ID: "owner", Plan: model.PlanFree}})
	ls, _ := json.Marshal([]model.Link{{ID: "l1", UserID: "owner", ShortCode: "Go1", OriginalURL: "https://dest.example/page"}})
	backend.Put(storage.KeyUsers, users)
	backend.Put(storage.KeyLinks, ls)

	cfg := model.DefaultSettings()
	cfg.TotalSteps = steps
	cfg.WaitSeconds = wait
	cfg.CPMRate = cpm
	cfg.Ads = model.AdSlots{Top: "<ad-top>", Bottom: "<ad-bottom>"}
	store := storage.New(backend, cfg)

	clk := &clock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	engine := gate.NewEngine(
		gate.NewMemorySessions(time.Hour),
		links.NewService(store, links.NewCryptoSlugger(), 6, "https://sho.rt"),
		settings.NewService(store),
		ledger.NewService(store, nil),
	).WithClock(clk.Now)

	return &harness{engine: engine, store: store, clock: clk}
}

func (h *harness) completeStep(t *testing.T, id string, wait time.Duration) gate.View {
	t.Helper()
	ctx := context.Background()

	h.clock.Advance(wait)
	if _, err := h.engine.Verify(ctx, id); err != nil {
		t.Fatalf("verify: %v", err)
	}
	v, err := h.engine.Continue(ctx, id)
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	return v
}

func TestEngine_ThreeStepScenario(t *testing.T) {
	h := newHarness(t, 3, 5, 10)
	ctx := context.Background()

	v, err := h.engine.Start(ctx, "Go1", model.ClientMeta{UserAgent: "ua"})
	if err != nil {
		t.Fatal(err)
	}
	if v.Phase != gate.PhaseCounting || v.Step != 1 || v.TotalSteps != 3 || v.RemainingSeconds != 5 {
		t.Fatalf("unexpected start view: %+v", v)
	}
	if v.Ads.Top != "<ad-top>" || v.Destination != "" {
		t.Errorf("ads must pass through and destination stay hidden: %+v", v)
	}

	for step := 1; step <= 3; step++ {
		v = h.completeStep(t, v.TraversalID, 5*time.Second)
	}
	if v.Phase != gate.PhaseFinalized || v.Destination != "https://dest.example/page" {
		t.Fatalf("unexpected final view: %+v", v)
	}

	link := h.store.Links(ctx)[0]
	owner := h.store.Users(ctx)[0]
	if link.Clicks != 1 || math.Abs(link.Earnings-0.01) > 1e-9 || math.Abs(owner.Balance-0.01) > 1e-9 {
		t.Errorf("got clicks=%d earnings=%v balance=%v, want 1 / 0.01 / 0.01", link.Clicks, link.Earnings, owner.Balance)
	}

	// Reloading the final page must not credit again.
	if _, err := h.engine.Continue(ctx, v.TraversalID); err != nil {
		t.Fatal(err)
	}
	if got := h.store.Links(ctx)[0].Clicks; got != 1 {
		t.Errorf("reload double counted: clicks=%d", got)
	}
}

func TestEngine_LockedStepRejected(t *testing.T) {
	h := newHarness(t, 1, 10, 5)
	ctx := context.Background()

	v, err := h.engine.Start(ctx, "Go1", model.ClientMeta{})
	if err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(3 * time.Second)
	if _, err := h.engine.Verify(ctx, v.TraversalID); !errors.Is(err, gate.ErrStepLocked) {
		t.Fatalf("expected ErrStepLocked, got %v", err)
	}

	got, err := h.engine.Get(ctx, v.TraversalID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Phase != gate.PhaseCounting || got.RemainingSeconds != 7 || math.Abs(got.Progress-0.3) > 1e-9 {
		t.Errorf("unexpected view mid countdown: %+v", got)
	}

	h.clock.Advance(7 * time.Second)
	got, _ = h.engine.Get(ctx, v.TraversalID)
	if got.Phase != gate.PhaseVerifying {
		t.Errorf("observation after wait must show VERIFYING, got %s", got.Phase)
	}
}

func TestEngine_NotFound(t *testing.T) {
	h := newHarness(t, 3, 5, 10)
	ctx := context.Background()

	v, err := h.engine.Start(ctx, "go1", model.ClientMeta{})
	if !errors.Is(err, gate.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for case-mismatched code, got %v", err)
	}
	if v.Phase != gate.PhaseNotFound {
		t.Errorf("got phase %s", v.Phase)
	}

	if _, err := h.engine.Get(ctx, "unknown-traversal"); !errors.Is(err, gate.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEngine_AbandonedTraversalHasNoEffect(t *testing.T) {
	h := newHarness(t, 2, 1, 10)
	ctx := context.Background()

	v, _ := h.engine.Start(ctx, "Go1", model.ClientMeta{})
	h.completeStep(t, v.TraversalID, time.Second)

	if n := len(h.store.Clicks(ctx)); n != 0 {
		t.Errorf("abandoned traversal recorded %d clicks", n)
	}
}

func TestEngine_ConcurrentContinueCreditsOnce(t *testing.T) {
	h := newHarness(t, 1, 0, 10)
	ctx := context.Background()

	v, _ := h.engine.Start(ctx, "Go1", model.ClientMeta{})
	if _, err := h.engine.Verify(ctx, v.TraversalID); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.engine.Continue(ctx, v.TraversalID); err != nil {
				t.Errorf("continue: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := h.store.Links(ctx)[0].Clicks; got != 1 {
		t.Errorf("got %d clicks, want 1", got)
	}
}

func TestEngine_ClampsNonPositiveSteps(t *testing.T) {
	h := newHarness(t, 0, 0, 10)

	v, err := h.engine.Start(context.Background(), "Go1", model.ClientMeta{})
	if err != nil {
		t.Fatal(err)
	}
	if v.TotalSteps != 1 {
		t.Errorf("got %d steps, want 1", v.TotalSteps)
	}
	if v = h.completeStep(t, v.TraversalID, 0); v.Phase != gate.PhaseFinalized {
		t.Errorf("got %s, want FINALIZED", v.Phase)
	}
}
