package gate

import (
	"context"
	"errors"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/ledger"
)

var (
	ErrNotFound        = errors.New("short code not found")
	ErrSessionNotFound = errors.New("traversal not found")
)

// Session is the persisted traversal. It only lives as long as the visitor
// keeps driving it; abandoned sessions expire with no ledger effect.
type Session struct {
	ID          string           `json:"id"`
	LinkID      string           `json:"linkId"`
	OwnerID     string           `json:"ownerId"`
	ShortCode   string           `json:"shortCode"`
	Destination string           `json:"destination"`
	State       State            `json:"state"`
	Meta        model.ClientMeta `json:"meta"`
	Ads         model.AdSlots    `json:"ads"`
	ClickID     string           `json:"clickId,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

type LinkResolver interface {
	FindByShortCode(ctx context.Context, code string) (*model.Link, error)
}

type SettingsSource interface {
	Get(ctx context.Context) model.Settings
}

type Finalizer interface {
	Finalize(ctx context.Context, in ledger.FinalizeInput) (*model.ClickEvent, error)
}
