package gate

import (
	"context"
	"sync"
	"time"
)

var _ SessionStore = (*MemorySessions)(nil)

// MemorySessions keeps traversals in process memory. Entries idle longer
// than ttl are treated as abandoned; a zero ttl never expires them.
type MemorySessions struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]sessionEntry
	lastSweep time.Time
}

const sweepInterval = time.Minute

type sessionEntry struct {
	sess      Session
	expiresAt time.Time
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]sessionEntry),
	}
}

func (s *MemorySessions) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.ttl > 0 && s.now().After(e.expiresAt) {
		delete(s.entries, id)
		return nil, ErrSessionNotFound
	}
	cp := e.sess
	return &cp, nil
}

func (s *MemorySessions) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sess.ID] = sessionEntry{sess: *sess, expiresAt: s.now().Add(s.ttl)}
	s.sweep()
	return nil
}

// sweep drops expired entries at most once per sweepInterval; callers hold mu.
func (s *MemorySessions) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}
