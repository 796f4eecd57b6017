// Package service implements the gateway's core behavior: the refresh
// coordinator, the proxy dispatcher, the login handshake, and background
// housekeeping. Services are plain structs with injected dependencies;
// nothing in this package holds package-level state.
package service

import (
	"context"
	"errors"

	"github.com/openlearnco/classgate/internal/gateway/upstream"
	"github.com/openlearnco/classgate/pkg/cryptox"
)

var (
	// ErrNoSession means the session id resolved to nothing: no cookie was
	// ever issued, the record expired, or it was deleted by logout.
	ErrNoSession = errors.New("no session")

	// ErrNoPendingLogin means a login confirmation arrived for a session
	// that has no handshake in flight.
	ErrNoPendingLogin = errors.New("no pending login")

	// ErrLoginNotConfirmed means the identity provider would not confirm
	// the pending login and the fallback policy is strict.
	ErrLoginNotConfirmed = errors.New("login not confirmed")
)

// IdentityProvider is the slice of the identity provider the services need.
// *upstream.IdentityClient satisfies it; tests substitute fakes.
type IdentityProvider interface {
	InitLogin(ctx context.Context, loginType, loginToken string) (string, error)
	CheckLogin(ctx context.Context, loginToken string) (upstream.CheckResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string, all bool) error
}

// ResourceCaller performs one downstream business action.
// *upstream.ResourceClient satisfies it.
type ResourceCaller interface {
	Call(ctx context.Context, action, token, subjectID string, params map[string]string) (upstream.ResourceResult, error)
}

// fingerprint makes a session id safe to log. Raw ids are bearer
// credentials and must never appear in log output.
func fingerprint(sessionID string) string {
	return cryptox.FingerprintToken(sessionID)[:12]
}
