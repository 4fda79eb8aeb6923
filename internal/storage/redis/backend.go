package redis

import (
	"context"
	"errors"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxTxRetries = 20

var _ storage.Backend = (*Backend)(nil)

// Backend stores each collection under one string key and serializes
// read-modify-write cycles with WATCH/MULTI.
type Backend struct {
	client goredis.UniversalClient
	prefix string
}

func NewBackend(client goredis.UniversalClient, prefix string) *Backend {
	if prefix == "" {
		prefix = "shortener"
	}
	return &Backend{client: client, prefix: prefix}
}

func (b *Backend) key(k string) string {
	return b.prefix + ":kv:" + k
}

func (b *Backend) Load(ctx context.Context, key string) ([]byte, error) {
	raw, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	return raw, err
}

func (b *Backend) Update(ctx context.Context, keys []string, fn storage.MutateFunc) error {
	rkeys := make([]string, len(keys))
	for i, k := range keys {
		rkeys[i] = b.key(k)
	}

	txf := func(tx *goredis.Tx) error {
		vals, err := tx.MGet(ctx, rkeys...).Result()
		if err != nil {
			return err
		}
		docs := make(map[string][]byte, len(keys))
		for i, v := range vals {
			if s, ok := v.(string); ok {
				docs[keys[i]] = []byte(s)
			}
		}

		changed, err := fn(docs)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			for k, v := range changed {
				pipe.Set(ctx, b.key(k), v, 0)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := b.client.Watch(ctx, txf, rkeys...)
		if errors.Is(err, goredis.TxFailedErr) {
			logger.Debug("redis transaction conflict, retrying",
				zap.Strings("keys", keys),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return err
	}
	return storage.ErrConflict
}
