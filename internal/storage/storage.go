package storage

import (
	"context"
	"errors"
)

// Fixed document keys. Each key holds one whole collection.
const (
	KeyUsers    = "users"
	KeyLinks    = "links"
	KeyClicks   = "clicks"
	KeySettings = "settings"
)

var ErrConflict = errors.New("storage: concurrent update conflict")

// MutateFunc receives the current raw documents for the requested keys (a
// missing key maps to nil) and returns the documents that must be written.
// It may run more than once when a backend retries after a conflict, so it
// must not have side effects outside the returned map.
type MutateFunc func(docs map[string][]byte) (map[string][]byte, error)

// Backend is the storage port. Implementations must apply Update atomically
// with respect to every other Update touching an overlapping key set.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Update(ctx context.Context, keys []string, fn MutateFunc) error
}
