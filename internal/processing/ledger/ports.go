package ledger

import (
	"context"
	"errors"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/events"
)

var (
	ErrLinkNotFound  = errors.New("link not found")
	ErrOwnerNotFound = errors.New("link owner not found")
	ErrOwnerMismatch = errors.New("link is owned by a different user")
	ErrMissingKey    = errors.New("traversal id is required")
)

// Publisher forwards committed clicks to downstream consumers.
type Publisher interface {
	PublishClick(ctx context.Context, ev events.ClickRecorded) error
}

type noopPublisher struct{}

func (noopPublisher) PublishClick(context.Context, events.ClickRecorded) error { return nil }
