// Package store holds the kiosk session stores: an in-process one for a single
// kiosk service and a Redis one for several instances behind a balancer.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/zekroTJA/timedmap"

	"kiosk/internal/kiosk"
	"kiosk/pkg/platform/sentinel"
)

const defaultCleanupInterval = time.Minute

// MemoryStore keeps sessions as JSON in a timedmap so callers never share a
// *Session with the store, same as with Redis.
type MemoryStore struct {
	ttl      time.Duration
	cleanup  time.Duration
	sessions *timedmap.TimedMap
	onExpire func(id string)

	locks sync.Map // id -> *sync.Mutex
}

type MemoryOption func(*MemoryStore)

func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired sessions are swept.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.cleanup = d
		}
	}
}

// WithExpiryHook is called with the id of every session the cleaner drops.
// Deleted sessions do not trigger it.
func WithExpiryHook(fn func(id string)) MemoryOption {
	return func(s *MemoryStore) {
		s.onExpire = fn
	}
}

func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		ttl:     kiosk.DefaultSessionTTL,
		cleanup: defaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = timedmap.New(s.cleanup)
	return s
}

func (s *MemoryStore) lock(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *MemoryStore) put(session *kiosk.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	id := session.ID
	s.sessions.Set(id, data, s.ttl, func(any) {
		s.locks.Delete(id)
		if s.onExpire != nil {
			s.onExpire(id)
		}
	})
	return nil
}

func (s *MemoryStore) get(id string) (*kiosk.Session, error) {
	data, ok := s.sessions.GetValue(id).([]byte)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	var session kiosk.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *MemoryStore) Create(_ context.Context, session *kiosk.Session) error {
	mu := s.lock(session.ID)
	mu.Lock()
	defer mu.Unlock()

	if s.sessions.Contains(session.ID) {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
	}
	return s.put(session)
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*kiosk.Session, error) {
	return s.get(id)
}

func (s *MemoryStore) Execute(_ context.Context, id string, mutate func(*kiosk.Session) error) (*kiosk.Session, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(session); err != nil {
		return nil, err
	}
	if err := s.put(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if !s.sessions.Contains(id) {
		return fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	s.sessions.Remove(id)
	s.locks.Delete(id)
	return nil
}

// Len counts live sessions.
func (s *MemoryStore) Len() int {
	return s.sessions.Size()
}

// Close stops the expiry cleaner.
func (s *MemoryStore) Close() {
	s.sessions.StopCleaner()
}

var _ kiosk.Store = (*MemoryStore)(nil)
