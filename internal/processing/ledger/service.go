package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/events"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/metrics"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/telemetry"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type FinalizeInput struct {
	TraversalID string
	LinkID      string
	OwnerID     string
	ShortCode   string
	Meta        model.ClientMeta
}

type Service struct {
	store     *storage.Store
	publisher Publisher
	now       func() time.Time
	newID     func() string
}

func NewService(store *storage.Store, publisher Publisher) *Service {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Finalize records a completed traversal. The click append, the link counter,
// the earnings recomputation and the owner credit commit together, and a
// traversal id that was already recorded returns the original event unchanged.
func (s *Service) Finalize(ctx context.Context, in FinalizeInput) (*model.ClickEvent, error) {
	if in.TraversalID == "" {
		return nil, ErrMissingKey
	}

	ctx, span := telemetry.StartSpan(ctx, "ledger.finalize",
		attribute.String("traversal.id", in.TraversalID),
		attribute.String("link.code", in.ShortCode),
	)
	defer span.End()

	var (
		recorded  model.ClickEvent
		duplicate bool
	)
	keys := []string{storage.KeyUsers, storage.KeyLinks, storage.KeyClicks, storage.KeySettings}
	err := s.store.Update(ctx, keys, func(tx *storage.Tx) error {
		// Reset for optimistic backends that rerun the mutation.
		duplicate = false

		if prior := tx.ClickByTraversal(in.TraversalID); prior != nil {
			recorded = *prior
			duplicate = true
			return nil
		}

		link := tx.LinkByID(in.LinkID)
		if link == nil {
			return ErrLinkNotFound
		}
		if in.OwnerID != "" && link.UserID != in.OwnerID {
			return ErrOwnerMismatch
		}
		owner := tx.UserByID(link.UserID)
		if owner == nil {
			return ErrOwnerNotFound
		}

		cpm := tx.Settings.CPMRate
		if cpm < 0 {
			cpm = 0
		}
		perClick := cpm / 1000

		link.Clicks++
		link.Earnings = model.EarningsFor(link.Clicks, cpm)
		owner.Balance += perClick

		recorded = model.ClickEvent{
			ID:          s.newID(),
			TraversalID: in.TraversalID,
			LinkID:      link.ID,
			UserID:      owner.ID,
			ShortCode:   link.ShortCode,
			Timestamp:   s.now().UTC(),
			Referrer:    in.Meta.Referrer,
			UserAgent:   in.Meta.UserAgent,
			Earned:      perClick,
		}
		tx.Clicks = append(tx.Clicks, recorded)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalize failed")
		logger.Error("failed to finalize click",
			zap.Error(err),
			zap.String("traversal_id", in.TraversalID),
			zap.String("link_id", in.LinkID),
		)
		return nil, err
	}

	if duplicate {
		metrics.ClicksFinalized.WithLabelValues("duplicate").Inc()
		logger.Debug("traversal already finalized", zap.String("traversal_id", in.TraversalID))
		return &recorded, nil
	}

	metrics.ClicksFinalized.WithLabelValues("recorded").Inc()
	metrics.EarningsCredited.Add(recorded.Earned)
	logger.Info("click recorded",
		zap.String("traversal_id", recorded.TraversalID),
		zap.String("link_id", recorded.LinkID),
		zap.String("user_id", recorded.UserID),
		zap.String("code", recorded.ShortCode),
		zap.Float64("earned", recorded.Earned),
	)

	// The ledger is already committed; downstream projections may lag.
	if err := s.publisher.PublishClick(ctx, events.NewClickRecorded(recorded)); err != nil {
		logger.Warn("failed to publish click event",
			zap.Error(err),
			zap.String("event_id", recorded.ID),
		)
	}

	return &recorded, nil
}

// IsNotFound reports whether err means the traversal target no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLinkNotFound) || errors.Is(err, ErrOwnerNotFound)
}
