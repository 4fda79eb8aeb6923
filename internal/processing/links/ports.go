package links

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("link not found")
	ErrInvalidURL    = errors.New("invalid url")
	ErrSlugTaken     = errors.New("short code space exhausted")
	ErrInvalidRange  = errors.New("invalid date range")
	ErrQuotaExceeded = errors.New("plan link limit reached")
	ErrOwnerNotFound = errors.New("owner not found")
	ErrOwnerBlocked  = errors.New("owner is suspended")
)

type Slugger interface {
	Generate(length int) (string, error)
}

// StatsReader serves pre-aggregated daily click counts, such as the
// projection built by the click consumer.
type StatsReader interface {
	GetDaily(ctx context.Context, code string, from, to time.Time) ([]DailyCount, error)
}
