package links

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/metrics"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/telemetry"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const maxSlugAttempts = 10

type Service struct {
	store      *storage.Store
	slugger    Slugger
	stats      StatsReader
	slugLength int
	baseURL    string
	now        func() time.Time
	newID      func() string
}

func NewService(store *storage.Store, slugger Slugger, slugLength int, baseURL string) *Service {
	if slugLength <= 0 {
		slugLength = defaultSlugLength
	}

	return &Service{
		store:      store,
		slugger:    slugger,
		slugLength: slugLength,
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// WithStatsReader makes GetStats read daily counts from r instead of the
// click log in the store.
func (s *Service) WithStatsReader(r StatsReader) *Service {
	s.stats = r
	return s
}

// CreateLink checks the owner's quota and inserts the link in a single
// storage update, so concurrent creations cannot overshoot the plan limit.
func (s *Service) CreateLink(ctx context.Context, in CreateLinkInput) (*model.Link, error) {
	channel := in.Channel
	if channel == "" {
		channel = ChannelForm
	}

	ctx, span := telemetry.StartSpan(ctx, "links.create",
		attribute.String("link.owner_id", in.OwnerID),
		attribute.String("link.channel", channel),
	)
	defer span.End()

	normalizedURL, err := validateAndNormalizeURL(in.URL)
	if err != nil {
		metrics.LinkCreations.WithLabelValues(channel, "invalid_url").Inc()
		return nil, ErrInvalidURL
	}

	var created model.Link
	err = s.store.Update(ctx, []string{storage.KeyUsers, storage.KeyLinks, storage.KeySettings}, func(tx *storage.Tx) error {
		owner := tx.UserByID(in.OwnerID)
		if owner == nil {
			return ErrOwnerNotFound
		}
		if owner.IsSuspended {
			return ErrOwnerBlocked
		}

		quota := tx.Settings.PlanConfig(owner.Plan)
		if !quota.Unlimited() && tx.CountLinksOwnedBy(owner.ID) >= quota.LinkLimit {
			return ErrQuotaExceeded
		}

		code, err := s.uniqueCode(tx)
		if err != nil {
			return err
		}

		created = model.Link{
			ID:          s.newID(),
			UserID:      owner.ID,
			OriginalURL: normalizedURL,
			ShortCode:   code,
			CreatedAt:   s.now().UTC(),
		}
		tx.Links = append(tx.Links, created)
		return nil
	})
	if err != nil {
		metrics.LinkCreations.WithLabelValues(channel, outcome(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "create link failed")
		return nil, err
	}

	metrics.LinkCreations.WithLabelValues(channel, "created").Inc()
	logger.Info("link created",
		zap.String("link_id", created.ID),
		zap.String("code", created.ShortCode),
		zap.String("user_id", created.UserID),
		zap.String("channel", channel),
	)
	return &created, nil
}

// uniqueCode retries on collision with a stored or reserved code.
func (s *Service) uniqueCode(tx *storage.Tx) (string, error) {
	for range maxSlugAttempts {
		code, err := s.slugger.Generate(s.slugLength)
		if err != nil {
			return "", err
		}
		if !IsReservedCode(code) && tx.LinkByCode(code) == nil {
			return code, nil
		}
	}
	return "", ErrSlugTaken
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrOwnerNotFound), errors.Is(err, ErrOwnerBlocked):
		return "rejected_owner"
	default:
		return "error"
	}
}

// FindByShortCode is a case-sensitive exact lookup.
func (s *Service) FindByShortCode(ctx context.Context, code string) (*model.Link, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrNotFound
	}

	var found *model.Link
	_ = s.store.View(ctx, []string{storage.KeyLinks}, func(tx *storage.Tx) error {
		if l := tx.LinkByCode(code); l != nil {
			cp := *l
			found = &cp
		}
		return nil
	})
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) []model.Link {
	all := s.store.Links(ctx)
	out := make([]model.Link, 0)
	for _, l := range all {
		if l.UserID == ownerID {
			out = append(out, l)
		}
	}
	sortNewestFirst(out)
	return out
}

func (s *Service) ListAll(ctx context.Context) []model.Link {
	out := s.store.Links(ctx)
	sortNewestFirst(out)
	return out
}

// DeleteLink removes a link. A non-empty ownerID restricts the delete to
// that owner's links. Click events referencing the link are retained.
func (s *Service) DeleteLink(ctx context.Context, linkID, ownerID string) error {
	var removed model.Link
	err := s.store.Update(ctx, []string{storage.KeyLinks}, func(tx *storage.Tx) error {
		l := tx.LinkByID(linkID)
		if l == nil || (ownerID != "" && l.UserID != ownerID) {
			return ErrNotFound
		}
		removed, _ = tx.RemoveLink(linkID)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("link deleted",
		zap.String("link_id", removed.ID),
		zap.String("code", removed.ShortCode),
		zap.Int64("clicks", removed.Clicks),
	)
	return nil
}

// GetStats returns one entry per day in [from, to], zero-filled.
func (s *Service) GetStats(ctx context.Context, code string, from, to time.Time) ([]DailyCount, error) {
	if _, err := s.FindByShortCode(ctx, code); err != nil {
		return nil, err
	}

	from = from.UTC()
	to = to.UTC()
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	byDate, err := s.dailyCounts(ctx, code, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]DailyCount, 0, int(to.Sub(from).Hours()/24)+1)
	for day := dateOnly(from); !day.After(dateOnly(to)); day = day.AddDate(0, 0, 1) {
		ds := day.Format(time.DateOnly)
		out = append(out, DailyCount{
			Date:  ds,
			Count: byDate[ds],
		})
	}

	return out, nil
}

func (s *Service) dailyCounts(ctx context.Context, code string, from, to time.Time) (map[string]int64, error) {
	byDate := make(map[string]int64)

	if s.stats != nil {
		daily, err := s.stats.GetDaily(ctx, code, from, to)
		if err != nil {
			return nil, err
		}
		for _, d := range daily {
			byDate[d.Date] += d.Count
		}
		return byDate, nil
	}

	for _, c := range s.store.Clicks(ctx) {
		if c.ShortCode != code {
			continue
		}
		byDate[c.Timestamp.UTC().Format(time.DateOnly)]++
	}
	return byDate, nil
}

func (s *Service) ShortURL(code string) string {
	return s.baseURL + "/" + code
}

func validateAndNormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", ErrInvalidURL
	}

	u.Fragment = ""
	return u.String(), nil
}

func sortNewestFirst(ls []model.Link) {
	sort.SliceStable(ls, func(i, j int) bool {
		return ls[i].CreatedAt.After(ls[j].CreatedAt)
	})
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
