// Package memory provides an in-process session store for development and
// tests. Entries carry their own deadline and are evicted lazily on read and
// by the housekeeping sweep.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/openlearnco/classgate/internal/gateway/domain"
	"github.com/openlearnco/classgate/internal/gateway/store"
)

type entry struct {
	session   domain.Session
	expiresAt time.Time
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]entry

	// now is swappable so tests can control expiry.
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) Sessions() store.Sessions { return (*sessionsRepo)(s) }

func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

type sessionsRepo Store

func (r *sessionsRepo) Get(ctx context.Context, id string) (domain.Session, error) {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok || r.now().After(e.expiresAt) {
		return domain.Session{}, store.ErrNotFound
	}
	return e.session, nil
}

func (r *sessionsRepo) Put(ctx context.Context, id string, sess domain.Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[id] = entry{
		session:   sess,
		expiresAt: r.now().Add(ttl),
	}
	return nil
}

func (r *sessionsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *sessionsRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var dropped int64
	for id, e := range r.sessions {
		if now.After(e.expiresAt) {
			delete(r.sessions, id)
			dropped++
		}
	}
	return dropped, nil
}
