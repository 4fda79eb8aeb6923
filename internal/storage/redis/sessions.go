package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/gate"
	goredis "github.com/redis/go-redis/v9"
)

var _ gate.SessionStore = (*Sessions)(nil)

// Sessions keeps traversals as JSON values that expire after ttl of inactivity.
// A zero ttl stores them without expiry.
type Sessions struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewSessions(client goredis.UniversalClient, prefix string, ttl time.Duration) *Sessions {
	if prefix == "" {
		prefix = "shortener"
	}
	return &Sessions{client: client, prefix: prefix, ttl: ttl}
}

func (s *Sessions) key(id string) string {
	return s.prefix + ":traversal:" + id
}

func (s *Sessions) Get(ctx context.Context, id string) (*gate.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, gate.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess gate.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, gate.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *Sessions) Save(ctx context.Context, sess *gate.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sess.ID), raw, s.ttl).Err()
}
