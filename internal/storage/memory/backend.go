package memory

import (
	"context"
	"sync"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
)

// Backend keeps documents in process memory and serializes every Update
// behind one mutex.
type Backend struct {
	mu   sync.Mutex
	docs map[string][]byte
}

var _ storage.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{docs: make(map[string][]byte)}
}

func (b *Backend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.docs[key]), nil
}

func (b *Backend) Update(ctx context.Context, keys []string, fn storage.MutateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current := make(map[string][]byte, len(keys))
	for _, key := range keys {
		current[key] = clone(b.docs[key])
	}

	writes, err := fn(current)
	if err != nil {
		return err
	}
	for key, doc := range writes {
		b.docs[key] = clone(doc)
	}
	return nil
}

// Put overwrites a raw document. Used to seed fixtures.
func (b *Backend) Put(key string, doc []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[key] = clone(doc)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
