// Package sqlite provides a single-node session store for deployments without
// a redis. TTLs are emulated: rows carry an absolute expires_at, reads filter
// on it, and the housekeeping service sweeps lapsed rows.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openlearnco/classgate/internal/gateway/domain"
	"github.com/openlearnco/classgate/internal/gateway/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// WAL keeps concurrent request handlers from serializing on the writer.
	if _, err := db.ExecContext(context.Background(), `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Sessions() store.Sessions { return &sessionsRepo{db: s.db} }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

type sessionsRepo struct {
	db *sql.DB
}

func (r *sessionsRepo) Get(ctx context.Context, id string) (domain.Session, error) {
	var record string
	err := r.db.QueryRowContext(ctx,
		`SELECT record FROM sessions WHERE id = ? AND expires_at > ?`,
		id, time.Now().UTC(),
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(record), &sess); err != nil {
		return domain.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (r *sessionsRepo) Put(ctx context.Context, id string, sess domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, record, expires_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   record = excluded.record,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		id, string(data), now.Add(ttl), now,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (r *sessionsRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (r *sessionsRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
