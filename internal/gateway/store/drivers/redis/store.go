// Package redis provides the production session store. Records are stored as
// JSON under a prefixed key with a native TTL, so expiry needs no sweeper and
// concurrent whole-record SETs resolve to last-write-wins.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openlearnco/classgate/internal/gateway/domain"
	"github.com/openlearnco/classgate/internal/gateway/store"
)

const keyPrefix = "session:"

type Store struct {
	client *redis.Client
}

// NewStore connects to redis at addr ("host:port"). The short timeouts keep a
// dead cache from stalling inbound requests past their downstream budget.
func NewStore(addr string) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}),
	}
}

// NewStoreFromClient wraps an existing client. Tests use this with a
// containerized redis.
func NewStoreFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Sessions() store.Sessions { return &sessionsRepo{client: s.client} }

func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }

type sessionsRepo struct {
	client *redis.Client
}

func key(id string) string { return keyPrefix + id }

func (r *sessionsRepo) Get(ctx context.Context, id string) (domain.Session, error) {
	val, err := r.client.Get(ctx, key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		// A corrupt record is unusable; treat it like a miss so the user is
		// sent back through login instead of erroring forever.
		return domain.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (r *sessionsRepo) Put(ctx context.Context, id string, sess domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (r *sessionsRepo) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// DeleteExpired is a no-op: redis expires keys natively.
func (r *sessionsRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
