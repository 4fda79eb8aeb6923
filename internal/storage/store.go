package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"go.uber.org/zap"
)

// Store decodes the raw collections held by a Backend into typed records.
// Unreadable or corrupt collections decode to their empty default.
type Store struct {
	backend  Backend
	defaults model.Settings
}

func New(backend Backend, defaults model.Settings) *Store {
	return &Store{backend: backend, defaults: defaults}
}

// Tx is the decoded view of the collections requested by one Update or View.
// Collections that were not requested stay empty and are never written.
type Tx struct {
	Users    []model.User
	Links    []model.Link
	Clicks   []model.ClickEvent
	Settings model.Settings

	baseline map[string][]byte
}

// Update runs fn against the named collections as one atomic unit and
// persists the collections fn changed.
func (s *Store) Update(ctx context.Context, keys []string, fn func(tx *Tx) error) error {
	return s.backend.Update(ctx, keys, func(docs map[string][]byte) (map[string][]byte, error) {
		tx := s.decode(keys, docs)
		if err := fn(tx); err != nil {
			return nil, err
		}
		return tx.changed()
	})
}

// View runs fn against a read-only snapshot of the named collections. The
// snapshot is not atomic across keys.
func (s *Store) View(ctx context.Context, keys []string, fn func(tx *Tx) error) error {
	docs := make(map[string][]byte, len(keys))
	for _, key := range keys {
		raw, err := s.backend.Load(ctx, key)
		if err != nil {
			logger.Warn("storage read failed, using empty collection", zap.String("key", key), zap.Error(err))
			continue
		}
		docs[key] = raw
	}
	return fn(s.decode(keys, docs))
}

func (s *Store) Users(ctx context.Context) []model.User {
	var out []model.User
	_ = s.View(ctx, []string{KeyUsers}, func(tx *Tx) error {
		out = tx.Users
		return nil
	})
	return out
}

func (s *Store) Links(ctx context.Context) []model.Link {
	var out []model.Link
	_ = s.View(ctx, []string{KeyLinks}, func(tx *Tx) error {
		out = tx.Links
		return nil
	})
	return out
}

func (s *Store) Clicks(ctx context.Context) []model.ClickEvent {
	var out []model.ClickEvent
	_ = s.View(ctx, []string{KeyClicks}, func(tx *Tx) error {
		out = tx.Clicks
		return nil
	})
	return out
}

func (s *Store) Settings(ctx context.Context) model.Settings {
	var out model.Settings
	_ = s.View(ctx, []string{KeySettings}, func(tx *Tx) error {
		out = tx.Settings
		return nil
	})
	return out
}

func (s *Store) decode(keys []string, docs map[string][]byte) *Tx {
	tx := &Tx{
		Users:    []model.User{},
		Links:    []model.Link{},
		Clicks:   []model.ClickEvent{},
		Settings: cloneSettings(s.defaults),
		baseline: make(map[string][]byte, len(keys)),
	}

	for _, key := range keys {
		raw := docs[key]
		switch key {
		case KeyUsers:
			decodeInto(key, raw, &tx.Users)
			if tx.Users == nil {
				tx.Users = []model.User{}
			}
		case KeyLinks:
			decodeInto(key, raw, &tx.Links)
			if tx.Links == nil {
				tx.Links = []model.Link{}
			}
		case KeyClicks:
			decodeInto(key, raw, &tx.Clicks)
			if tx.Clicks == nil {
				tx.Clicks = []model.ClickEvent{}
			}
		case KeySettings:
			var stored model.Settings
			if decodeInto(key, raw, &stored) {
				tx.Settings = stored
			}
		default:
			logger.Warn("unknown storage key requested", zap.String("key", key))
			continue
		}
		// Baseline is the re-encoded decoded value, so defaults and
		// degraded collections are only written back when fn changes them.
		tx.baseline[key], _ = tx.encode(key)
	}

	return tx
}

func decodeInto(key string, raw []byte, dst any) bool {
	if len(bytes.TrimSpace(raw)) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Warn("corrupt collection, using empty default", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (tx *Tx) encode(key string) ([]byte, error) {
	switch key {
	case KeyUsers:
		return json.Marshal(tx.Users)
	case KeyLinks:
		return json.Marshal(tx.Links)
	case KeyClicks:
		return json.Marshal(tx.Clicks)
	case KeySettings:
		return json.Marshal(tx.Settings)
	}
	return nil, nil
}

func (tx *Tx) changed() (map[string][]byte, error) {
	out := make(map[string][]byte)
	for key, before := range tx.baseline {
		after, err := tx.encode(key)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(before, after) {
			out[key] = after
		}
	}
	return out, nil
}

func (tx *Tx) UserByID(id string) *model.User {
	for i := range tx.Users {
		if tx.Users[i].ID == id {
			return &tx.Users[i]
		}
	}
	return nil
}

func (tx *Tx) UserByAPIKey(key string) *model.User {
	if key == "" {
		return nil
	}
	for i := range tx.Users {
		if tx.Users[i].APIKey == key {
			return &tx.Users[i]
		}
	}
	return nil
}

func (tx *Tx) UserByEmail(email string) *model.User {
	email = strings.TrimSpace(email)
	for i := range tx.Users {
		if strings.EqualFold(tx.Users[i].Email, email) {
			return &tx.Users[i]
		}
	}
	return nil
}

func (tx *Tx) LinkByID(id string) *model.Link {
	for i := range tx.Links {
		if tx.Links[i].ID == id {
			return &tx.Links[i]
		}
	}
	return nil
}

func (tx *Tx) LinkByCode(code string) *model.Link {
	for i := range tx.Links {
		if tx.Links[i].ShortCode == code {
			return &tx.Links[i]
		}
	}
	return nil
}

func (tx *Tx) CountLinksOwnedBy(userID string) int {
	n := 0
	for i := range tx.Links {
		if tx.Links[i].UserID == userID {
			n++
		}
	}
	return n
}

// RemoveLink deletes the link with id and reports whether it existed.
func (tx *Tx) RemoveLink(id string) (model.Link, bool) {
	for i := range tx.Links {
		if tx.Links[i].ID == id {
			removed := tx.Links[i]
			tx.Links = append(tx.Links[:i], tx.Links[i+1:]...)
			return removed, true
		}
	}
	return model.Link{}, false
}

func (tx *Tx) ClickByTraversal(traversalID string) *model.ClickEvent {
	if traversalID == "" {
		return nil
	}
	for i := range tx.Clicks {
		if tx.Clicks[i].TraversalID == traversalID {
			return &tx.Clicks[i]
		}
	}
	return nil
}

func cloneSettings(s model.Settings) model.Settings {
	out := s
	out.Plans = make(map[model.Plan]model.PlanConfig, len(s.Plans))
	for k, v := range s.Plans {
		out.Plans[k] = v
	}
	return out
}
