package store

import (
	"context"
	"errors"
	"time"

	"github.com/openlearnco/classgate/internal/gateway/domain"
)

var (
	// ErrNotFound reports a session that does not exist or has expired.
	ErrNotFound = errors.New("store: session not found")

	// ErrUnavailable reports a backing-store failure. It is a distinct error
	// so callers never confuse "the store is down" with "no such session".
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Store is the root data access interface. Concrete drivers (redis, sqlite,
// memory) implement this. The session cache is the gateway's only shared
// mutable state, so the driver's own single-key atomicity is what concurrent
// requests rely on; there are no cross-record transactions.
type Store interface {
	Sessions() Sessions

	// ApplyMigrations prepares the backing schema. No-op for drivers whose
	// backend is schemaless.
	ApplyMigrations() error

	// Ping verifies the backend connection is still alive.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// Sessions is the session record repository. All writes replace the whole
// record; TTLs are enforced natively by the backend (or emulated by the
// driver) and reads never renew them.
type Sessions interface {
	// Get returns the session for id, ErrNotFound on miss or natural expiry,
	// or an error wrapping ErrUnavailable on backend failure.
	Get(ctx context.Context, id string) (domain.Session, error)

	// Put stores the full record under id with the given TTL, replacing any
	// previous value. Last write wins.
	Put(ctx context.Context, id string, s domain.Session, ttl time.Duration) error

	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes records past their TTL and returns how many were
	// dropped. Housekeeping only; drivers with native expiry return 0.
	DeleteExpired(ctx context.Context) (int64, error)
}
