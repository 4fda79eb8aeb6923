package events

import (
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
)

// ClickRecorded is emitted after the ledger commits a finalized traversal.
type ClickRecorded struct {
	EventID     string  `json:"eventId"`
	TraversalID string  `json:"traversalId"`
	LinkID      string  `json:"linkId"`
	UserID      string  `json:"userId"`
	ShortCode   string  `json:"shortCode"`
	Earned      float64 `json:"earned"`
	OccurredAt  string  `json:"occurredAt"`
}

func NewClickRecorded(ev model.ClickEvent) ClickRecorded {
	return ClickRecorded{
		EventID:     ev.ID,
		TraversalID: ev.TraversalID,
		LinkID:      ev.LinkID,
		UserID:      ev.UserID,
		ShortCode:   ev.ShortCode,
		Earned:      ev.Earned,
		OccurredAt:  ev.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// OccurredTime parses OccurredAt, falling back to fallback when absent or malformed.
func (e ClickRecorded) OccurredTime(fallback time.Time) (time.Time, error) {
	if e.OccurredAt == "" {
		return fallback.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, e.OccurredAt)
	if err != nil {
		return fallback.UTC(), err
	}
	return t.UTC(), nil
}
