package links

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage/memory"
)

// --- Hand-written fakes ---

type mockSlugger struct {
	mu    sync.Mutex
	slugs []string
	idx   int
}

func (m *mockSlugger) Generate(int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idx >= len(m.slugs) {
		return "", errors.New("no more slugs")
	}
	s := m.slugs[m.idx]
	m.idx++
	return s, nil
}

type counterSlugger struct{ n atomic.Int64 }

func (c *counterSlugger) Generate(int) (string, error) {
	return fmt.Sprintf("c%05d", c.n.Add(1)), nil
}

type fixture struct {
	backend *memory.Backend
	store   *storage.Store
	svc     *Service
}

func newFixture(t *testing.T, settings model.Settings, slugger Slugger, users ...model.User) *fixture {
	t.Helper()

	backend := memory.New()
	if len(users) > 0 {
		raw, err := json.Marshal(users)
		if err != nil {
			t.Fatal(err)
		}
		backend.Put(storage.KeyUsers, raw)
	}

	store := storage.New(backend, settings)
	svc := NewService(store, slugger, 6, "https://sho.rt/")
	svc.now = func() time.Time {
		return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	}
	return &fixture{backend: backend, store: store, svc: svc}
}

func quotaSettings(freeLimit, proLimit int) model.Settings {
	s := model.DefaultSettings()
	s.Plans[model.PlanFree] = model.PlanConfig{LinkLimit: freeLimit}
	s.Plans[model.PlanPro] = model.PlanConfig{LinkLimit: proLimit}
	return s
}

func (f *fixture) seedLinks(t *testing.T, owner string, n int) {
	t.Helper()
	ls := f.store.Links(context.Background())
	for i := 0; i < n; i++ {
		ls = append(ls, model.Link{
			ID:          fmt.Sprintf("%s-seed-%d", owner, i),
			UserID:      owner,
			OriginalURL: "https://example.com",
			ShortCode:   fmt.Sprintf("%s%d", owner, i),
		})
	}
	raw, err := json.Marshal(ls)
	if err != nil {
		t.Fatal(err)
	}
	f.backend.Put(storage.KeyLinks, raw)
}

// --- Tests for validateAndNormalizeURL ---

func TestValidateAndNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"valid https", "https://example.com/path", "https://example.com/path", false},
		{"valid http", "http://example.com", "http://example.com", false},
		{"strips fragment", "https://example.com/page#section", "https://example.com/page", false},
		{"keeps query", "https://example.com/?a=1&b=2", "https://example.com/?a=1&b=2", false},
		{"empty string", "", "", true},
		{"bad scheme ftp", "ftp://example.com", "", true},
		{"no scheme", "example.com", "", true},
		{"missing host", "https://", "", true},
		{"whitespace trimmed", "  https://example.com  ", "https://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateAndNormalizeURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDateOnly(t *testing.T) {
	input := time.Date(2025, 6, 15, 14, 30, 45, 123, time.UTC)
	got := dateOnly(input)
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("dateOnly(%v) = %v, want %v", input, got, want)
	}
}

// --- CreateLink ---

func TestCreateLink_HappyPath(t *testing.T) {
	owner := model.User{ID: "u1", Plan: model.PlanPro}
	f := newFixture(t, quotaSettings(5, 100), &mockSlugger{slugs: []string{"abc123"}}, owner)

	link, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "u1", URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if link.ShortCode != "abc123" {
		t.Errorf("got code %q, want %q", link.ShortCode, "abc123")
	}
	if link.Clicks != 0 || link.Earnings != 0 {
		t.Errorf("new link must start at zero, got clicks=%d earnings=%v", link.Clicks, link.Earnings)
	}
	if got := f.svc.ShortURL(link.ShortCode); got != "https://sho.rt/abc123" {
		t.Errorf("got short url %q", got)
	}

	stored, err := f.svc.FindByShortCode(context.Background(), "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if stored.UserID != "u1" || stored.OriginalURL != "https://example.com" {
		t.Errorf("unexpected stored link: %+v", stored)
	}
}

func TestCreateLink_InvalidURL(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{}, model.User{ID: "u1"})

	_, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "u1", URL: "not-a-url"})
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got: %v", err)
	}
}

func TestCreateLink_OwnerChecks(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{slugs: []string{"a", "b"}},
		model.User{ID: "blocked", Plan: model.PlanPro, IsSuspended: true},
	)

	_, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "ghost", URL: "https://example.com"})
	if !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("expected ErrOwnerNotFound, got %v", err)
	}

	_, err = f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "blocked", URL: "https://example.com"})
	if !errors.Is(err, ErrOwnerBlocked) {
		t.Errorf("expected ErrOwnerBlocked, got %v", err)
	}
	if n := len(f.store.Links(context.Background())); n != 0 {
		t.Errorf("rejected creations stored %d links", n)
	}
}

func TestCreateLink_FreeQuotaExceeded(t *testing.T) {
	f := newFixture(t, quotaSettings(5, 100), &mockSlugger{slugs: []string{"sixth"}},
		model.User{ID: "free", Plan: model.PlanFree},
	)
	f.seedLinks(t, "free", 5)

	_, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "free", URL: "https://example.com"})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if n := len(f.store.Links(context.Background())); n != 5 {
		t.Errorf("got %d links after rejected create, want 5", n)
	}
}

func TestCreateLink_QuotaCountsOnlyOwnLinks(t *testing.T) {
	f := newFixture(t, quotaSettings(2, 100), &mockSlugger{slugs: []string{"mine"}},
		model.User{ID: "a", Plan: model.PlanFree},
		model.User{ID: "b", Plan: model.PlanFree},
	)
	f.seedLinks(t, "b", 2)
	f.seedLinks(t, "a", 1)

	if _, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "a", URL: "https://example.com"}); err != nil {
		t.Fatalf("user a is below quota, got %v", err)
	}
}

func TestCreateLink_BusinessIsUnlimited(t *testing.T) {
	f := newFixture(t, quotaSettings(1, 1), &counterSlugger{},
		model.User{ID: "biz", Plan: model.PlanBusiness},
	)
	f.seedLinks(t, "biz", 50)

	for i := 0; i < 10; i++ {
		if _, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "biz", URL: "https://example.com"}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
}

func TestCreateLink_ConcurrentCreationsRespectQuota(t *testing.T) {
	f := newFixture(t, quotaSettings(5, 100), &counterSlugger{},
		model.User{ID: "free", Plan: model.PlanFree},
	)

	var wg sync.WaitGroup
	var ok, rejected atomic.Int64
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "free", URL: "https://example.com"})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrQuotaExceeded):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 5 || rejected.Load() != 20 {
		t.Errorf("got %d created / %d rejected, want 5 / 20", ok.Load(), rejected.Load())
	}
}

func TestCreateLink_CodeCollisionRetries(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{slugs: []string{"taken0", "taken1", "fresh"}},
		model.User{ID: "u1", Plan: model.PlanBusiness},
	)
	existing, _ := json.Marshal([]model.Link{
		{ID: "x0", UserID: "u1", ShortCode: "taken0"},
		{ID: "x1", UserID: "u1", ShortCode: "taken1"},
	})
	f.backend.Put(storage.KeyLinks, existing)

	link, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "u1", URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if link.ShortCode != "fresh" {
		t.Errorf("got code %q, want %q", link.ShortCode, "fresh")
	}
}

func TestCreateLink_SkipsReservedRouteCodes(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{slugs: []string{"health", "Metrics", "ready", "Ab3dE9"}},
		model.User{ID: "u1", Plan: model.PlanBusiness},
	)

	link, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "u1", URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if link.ShortCode != "Ab3dE9" {
		t.Errorf("got code %q, want %q", link.ShortCode, "Ab3dE9")
	}
}

func TestCreateLink_AllRetriesExhausted(t *testing.T) {
	slugs := make([]string, maxSlugAttempts)
	for i := range slugs {
		slugs[i] = "dup"
	}
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{slugs: slugs}, model.User{ID: "u1", Plan: model.PlanBusiness})
	existing, _ := json.Marshal([]model.Link{{ID: "x", UserID: "u1", ShortCode: "dup"}})
	f.backend.Put(storage.KeyLinks, existing)

	_, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "u1", URL: "https://example.com"})
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken after exhausting retries, got: %v", err)
	}
}

func TestCreateLink_ManyLinksHaveUniqueCodes(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), NewCryptoSlugger(), model.User{ID: "u1", Plan: model.PlanBusiness})
	f.svc.slugLength = 2 // small code space so collisions really happen

	seen := make(map[string]struct{})
	for i := 0; i < 300; i++ {
		link, err := f.svc.CreateLink(context.Background(), CreateLinkInput{OwnerID: "u1", URL: "https://example.com"})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if _, dup := seen[link.ShortCode]; dup {
			t.Fatalf("duplicate code %q", link.ShortCode)
		}
		seen[link.ShortCode] = struct{}{}
	}
}

// --- Lookup / delete ---

func TestFindByShortCode(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{})
	raw, _ := json.Marshal([]model.Link{{ID: "l1", ShortCode: "AbC"}})
	f.backend.Put(storage.KeyLinks, raw)

	if _, err := f.svc.FindByShortCode(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty code: expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.FindByShortCode(context.Background(), "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("lookup must be case-sensitive, got %v", err)
	}
	if l, err := f.svc.FindByShortCode(context.Background(), "AbC"); err != nil || l.ID != "l1" {
		t.Errorf("got (%+v, %v)", l, err)
	}
}

func TestDeleteLink(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{})
	raw, _ := json.Marshal([]model.Link{
		{ID: "l1", UserID: "owner", ShortCode: "one"},
		{ID: "l2", UserID: "other", ShortCode: "two"},
	})
	f.backend.Put(storage.KeyLinks, raw)
	clicks := []byte(`[{"id":"c1","linkId":"l1","shortCode":"one"}]`)
	f.backend.Put(storage.KeyClicks, clicks)
	ctx := context.Background()

	if err := f.svc.DeleteLink(ctx, "l2", "owner"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting someone else's link: expected ErrNotFound, got %v", err)
	}
	if err := f.svc.DeleteLink(ctx, "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := f.svc.DeleteLink(ctx, "l1", "owner"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteLink(ctx, "l2", ""); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	if n := len(f.store.Links(ctx)); n != 0 {
		t.Errorf("got %d links, want 0", n)
	}
	stored, _ := f.backend.Load(ctx, storage.KeyClicks)
	if !bytes.Equal(stored, clicks) {
		t.Errorf("click history must survive link deletion, got %s", stored)
	}
}

func TestListByOwner_NewestFirst(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{})
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	raw, _ := json.Marshal([]model.Link{
		{ID: "old", UserID: "u1", CreatedAt: base},
		{ID: "other", UserID: "u2", CreatedAt: base.Add(time.Hour)},
		{ID: "new", UserID: "u1", CreatedAt: base.Add(2 * time.Hour)},
	})
	f.backend.Put(storage.KeyLinks, raw)

	got := f.svc.ListByOwner(context.Background(), "u1")
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "old" {
		t.Errorf("unexpected listing: %+v", got)
	}
}

// --- Stats ---

func TestGetStats_InvalidRange(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{})
	raw, _ := json.Marshal([]model.Link{{ID: "l1", ShortCode: "abc"}})
	f.backend.Put(storage.KeyLinks, raw)

	from := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.GetStats(context.Background(), "abc", from, to)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got: %v", err)
	}
}

func TestGetStats_GapFilling(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{})
	raw, _ := json.Marshal([]model.Link{{ID: "l1", ShortCode: "abc"}})
	f.backend.Put(storage.KeyLinks, raw)

	day := func(d, h int) time.Time { return time.Date(2025, 1, d, h, 0, 0, 0, time.UTC) }
	clicks, _ := json.Marshal([]model.ClickEvent{
		{ID: "1", ShortCode: "abc", Timestamp: day(1, 1)},
		{ID: "2", ShortCode: "abc", Timestamp: day(1, 23)},
		{ID: "3", ShortCode: "abc", Timestamp: day(3, 8)},
		{ID: "4", ShortCode: "zzz", Timestamp: day(2, 8)},
	})
	f.backend.Put(storage.KeyClicks, clicks)

	counts, err := f.svc.GetStats(context.Background(), "abc", day(1, 0), day(3, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 3 {
		t.Fatalf("expected 3 days, got %d", len(counts))
	}
	if counts[0].Date != "2025-01-01" || counts[0].Count != 2 {
		t.Errorf("day 0: got %+v", counts[0])
	}
	if counts[1].Date != "2025-01-02" || counts[1].Count != 0 {
		t.Errorf("day 1 (gap): got %+v", counts[1])
	}
	if counts[2].Date != "2025-01-03" || counts[2].Count != 1 {
		t.Errorf("day 2: got %+v", counts[2])
	}
}

func TestQRCode(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{})
	raw, _ := json.Marshal([]model.Link{{ID: "l1", ShortCode: "abc"}})
	f.backend.Put(storage.KeyLinks, raw)

	png, err := f.svc.QRCode(context.Background(), "abc", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG output")
	}

	if _, err := f.svc.QRCode(context.Background(), "nope", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type fakeStatsReader struct {
	daily []DailyCount
	err   error
}

func (f fakeStatsReader) GetDaily(context.Context, string, time.Time, time.Time) ([]DailyCount, error) {
	return f.daily, f.err
}

func TestGetStats_FromStatsReader(t *testing.T) {
	f := newFixture(t, model.DefaultSettings(), &mockSlugger{})
	raw, _ := json.Marshal([]model.Link{{ID: "l1", ShortCode: "abc"}})
	f.backend.Put(storage.KeyLinks, raw)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 2)

	f.svc.WithStatsReader(fakeStatsReader{daily: []DailyCount{{Date: "2025-03-02", Count: 7}}})
	counts, err := f.svc.GetStats(context.Background(), "abc", from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 3 || counts[0].Count != 0 || counts[1].Count != 7 || counts[2].Count != 0 {
		t.Errorf("unexpected counts %+v", counts)
	}

	f.svc.WithStatsReader(fakeStatsReader{err: errors.New("mongo down")})
	if _, err := f.svc.GetStats(context.Background(), "abc", from, to); err == nil {
		t.Error("expected reader error to surface")
	}
}
