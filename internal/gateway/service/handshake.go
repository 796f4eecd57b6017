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
	"github.com/openlearnco/classgate/pkg/cryptox"
	"github.com/openlearnco/classgate/pkg/idx"
	"github.com/openlearnco/classgate/pkg/slogx"
	"github.com/openlearnco/classgate/pkg/tokenx"
)

// FallbackPolicy controls what happens when the identity provider will not
// confirm a login at redirect time.
type FallbackPolicy string

const (
	// PolicyStrict fails the login and leaves the session Anonymous.
	PolicyStrict FallbackPolicy = "strict"

	// PolicyLenient degrades to a minimal Authorized record carrying only
	// the display name claimed on the redirect, with no tokens. Such a
	// session can browse but every proxied call fails with "no token".
	PolicyLenient FallbackPolicy = "lenient"
)

// ParseFallbackPolicy maps a config string to a policy, defaulting to strict.
func ParseFallbackPolicy(s string) FallbackPolicy {
	if FallbackPolicy(s) == PolicyLenient {
		return PolicyLenient
	}
	return PolicyStrict
}

// SessionView is the session state exposed to the browser. Tokens stay
// server-side; only presentation fields cross the trust boundary.
type SessionView struct {
	Status      domain.Status `json:"status"`
	DisplayName string        `json:"display_name,omitempty"`
	Role        domain.Role   `json:"role,omitempty"`
}

// HandshakeService bridges an anonymous pre-authentication session to an
// authorized one once the identity provider confirms the pending login.
type HandshakeService struct {
	Store          store.Store
	IdP            IdentityProvider
	FallbackPolicy FallbackPolicy

	AnonymousTTL  time.Duration
	AuthorizedTTL time.Duration
}

// InitLogin starts a handshake: it asks the identity provider for a
// provider-specific redirect URL correlated to a fresh pending login id,
// then creates an Anonymous session holding that id. The caller is
// responsible for setting the session cookie.
func (s *HandshakeService) InitLogin(ctx context.Context, loginType string) (sessionID, authURL string, err error) {
	pendingID := idx.New().String()

	authURL, err = s.IdP.InitLogin(ctx, loginType, pendingID)
	if err != nil {
		return "", "", fmt.Errorf("failed to initiate login: %w", err)
	}

	sessionID, err = cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate session id: %w", err)
	}

	rec := domain.Session{
		Status:         domain.StatusAnonymous,
		PendingLoginID: pendingID,
	}
	if err := s.Store.Sessions().Put(ctx, sessionID, rec, s.anonymousTTL()); err != nil {
		return "", "", fmt.Errorf("failed to create session: %w", err)
	}

	slogx.FromContext(ctx).Info("login initiated",
		slog.String("login_type", loginType),
		slog.String("session_id_fp", fingerprint(sessionID)))
	return sessionID, authURL, nil
}

// ConfirmLogin handles the identity provider's redirect back to the
// gateway. The session is correlated by cookie; its own stored pending
// login id is what gets verified with the provider, so a forged state
// parameter cannot bind someone else's grant to this session.
//
// claimedName is whatever display name rode along on the redirect. It is
// used only when the lenient fallback kicks in; on a verified grant the
// provider's answer wins.
func (s *HandshakeService) ConfirmLogin(ctx context.Context, sessionID, claimedName string) error {
	l := slogx.FromContext(ctx)

	rec, err := s.Store.Sessions().Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSession
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	if rec.Status != domain.StatusAnonymous || rec.PendingLoginID == "" {
		return ErrNoPendingLogin
	}

	check, err := s.IdP.CheckLogin(ctx, rec.PendingLoginID)
	if err == nil && check.Status == upstream.LoginGranted && check.AccessToken != "" {
		return s.promote(ctx, sessionID, rec, check)
	}

	if s.FallbackPolicy != PolicyLenient {
		l.Warn("login confirmation failed",
			slog.String("session_id_fp", fingerprint(sessionID)),
			slog.Any("error", err))
		return ErrLoginNotConfirmed
	}

	// Lenient deployments accept the redirect at face value: the session
	// becomes Authorized in name only, with no tokens to call anything.
	l.Warn("login confirmation unavailable, degrading to tokenless session",
		slog.String("session_id_fp", fingerprint(sessionID)),
		slog.Any("error", err))

	rec = domain.Session{
		Status:      domain.StatusAuthorized,
		DisplayName: claimedName,
	}
	if err := s.Store.Sessions().Put(ctx, sessionID, rec, s.authorizedTTL()); err != nil {
		return fmt.Errorf("failed to persist degraded session: %w", err)
	}
	return nil
}

// PollStatus reports the session's state to the browser. An Anonymous
// session with a handshake in flight is opportunistically checked against
// the identity provider and auto-promoted on a grant, so a client can poll
// this single endpoint instead of relying on the redirect.
func (s *HandshakeService) PollStatus(ctx context.Context, sessionID string) (SessionView, error) {
	rec, err := s.Store.Sessions().Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SessionView{}, ErrNoSession
		}
		return SessionView{}, fmt.Errorf("failed to load session: %w", err)
	}

	if rec.Status == domain.StatusAnonymous && rec.PendingLoginID != "" {
		check, err := s.IdP.CheckLogin(ctx, rec.PendingLoginID)
		if err == nil && check.Status == upstream.LoginGranted && check.AccessToken != "" {
			if err := s.promote(ctx, sessionID, rec, check); err == nil {
				rec, _ = s.Store.Sessions().Get(ctx, sessionID)
			}
		}
		// A pending or failed check is not an error for the poller; the
		// session simply reads as still Anonymous.
	}

	return SessionView{
		Status:      rec.Status,
		DisplayName: rec.DisplayName,
		Role:        rec.Role,
	}, nil
}

// Logout deletes the local session. With revokeEverywhere the stored
// refresh token is also revoked server-side, killing every device's
// sessions at the provider; revocation failures are logged, not surfaced,
// since the local deletion is what the user asked for.
func (s *HandshakeService) Logout(ctx context.Context, sessionID string, revokeEverywhere bool) error {
	l := slogx.FromContext(ctx)

	rec, err := s.Store.Sessions().Get(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err == nil && revokeEverywhere && rec.RefreshToken != "" {
		if err := s.IdP.RevokeRefreshToken(ctx, rec.RefreshToken, true); err != nil {
			l.Warn("remote revocation failed",
				slog.String("session_id_fp", fingerprint(sessionID)),
				slog.Any("error", err))
		}
	}

	if err := s.Store.Sessions().Delete(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	l.Info("session ended", slog.String("session_id_fp", fingerprint(sessionID)))
	return nil
}

// promote turns an Anonymous session into an Authorized one from a granted
// check result. The role comes from the access token's own claims, never
// from anything the browser supplied.
func (s *HandshakeService) promote(ctx context.Context, sessionID string, rec domain.Session, check upstream.CheckResult) error {
	rec.Status = domain.StatusAuthorized
	rec.PendingLoginID = ""
	rec.DisplayName = check.UserName
	rec.AccessToken = check.AccessToken
	rec.RefreshToken = check.RefreshToken

	if claims, err := tokenx.Decode(check.AccessToken); err == nil {
		if claims.Role != "" {
			rec.Role = domain.ParseRole(claims.Role)
		}
		if rec.DisplayName == "" {
			rec.DisplayName = claims.Login
		}
	}

	if err := s.Store.Sessions().Put(ctx, sessionID, rec, s.authorizedTTL()); err != nil {
		return fmt.Errorf("failed to persist authorized session: %w", err)
	}

	slogx.FromContext(ctx).Info("session authorized",
		slog.String("session_id_fp", fingerprint(sessionID)),
		slog.String("role", string(rec.Role)))
	return nil
}

func (s *HandshakeService) anonymousTTL() time.Duration {
	if s.AnonymousTTL > 0 {
		return s.AnonymousTTL
	}
	return domain.AnonymousTTL
}

func (s *HandshakeService) authorizedTTL() time.Duration {
	if s.AuthorizedTTL > 0 {
		return s.AuthorizedTTL
	}
	return domain.AuthorizedTTL
}
