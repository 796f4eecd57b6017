package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openlearnco/classgate/internal/gateway/domain"
	"github.com/openlearnco/classgate/internal/gateway/store"
	"github.com/openlearnco/classgate/internal/gateway/upstream"
	"github.com/openlearnco/classgate/pkg/slogx"
	"github.com/openlearnco/classgate/pkg/tokenx"
)

// RefreshService exchanges a session's refresh token for a new access token
// and writes the result back to the store.
type RefreshService struct {
	Store      store.Store
	IdP        IdentityProvider
	SessionTTL time.Duration
}

// Refresh performs one token exchange for the given session. On success the
// new access token is returned directly to the caller for immediate use in
// the in-flight request; the caller must not re-read the store for it, since
// a concurrent refresh for the same session may have overwritten the record
// by then.
//
// Error classes matter to callers:
//   - upstream.ErrRefreshRejected: the provider denied the token, the user
//     must log in again.
//   - upstream.ErrUnavailable: the provider could not answer; the session is
//     left intact so a later request may retry.
//   - ErrNoSession: the record vanished mid-refresh (concurrent logout or
//     TTL expiry); the new token is discarded rather than resurrecting it.
func (s *RefreshService) Refresh(ctx context.Context, sessionID, refreshToken string) (string, error) {
	l := slogx.FromContext(ctx)

	if refreshToken == "" {
		return "", fmt.Errorf("%w: session holds no refresh token", upstream.ErrRefreshRejected)
	}

	newToken, err := s.IdP.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	rec, err := s.Store.Sessions().Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("failed to reload session: %w", err)
	}

	rec.AccessToken = newToken

	// The token is the source of truth for identity claims: re-derive the
	// role from the new payload instead of carrying the old value forward.
	if claims, err := tokenx.Decode(newToken); err == nil {
		if claims.Role != "" {
			rec.Role = domain.ParseRole(claims.Role)
		}
	} else {
		l.Warn("refreshed access token is not decodable, keeping previous claims",
			slog.String("session_id_fp", fingerprint(sessionID)))
	}

	if err := s.Store.Sessions().Put(ctx, sessionID, rec, s.ttl()); err != nil {
		return "", fmt.Errorf("failed to persist refreshed session: %w", err)
	}

	l.Debug("access token refreshed", slog.String("session_id_fp", fingerprint(sessionID)))
	return newToken, nil
}

func (s *RefreshService) ttl() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return domain.AuthorizedTTL
}
