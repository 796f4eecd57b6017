// Package tokenx structurally decodes bearer token payloads without verifying
// signatures.
//
// The gateway is deliberately NOT the verifying authority for access tokens:
// the downstream resource server validates signatures on every call it
// receives, and the identity provider is trusted for issuance. The gateway
// only needs to read the self-describing payload segment to learn who a token
// belongs to and when it expires, so it can refresh proactively. Callers must
// never treat a successful Decode as proof of authenticity.
package tokenx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSkew is the near-expiry buffer. It is short enough to avoid needless
// refreshes and long enough to cover one round trip to the resource server.
const DefaultSkew = 10 * time.Second

// ErrMalformed reports a token whose payload segment could not be decoded.
var ErrMalformed = errors.New("tokenx: malformed token")

// Claims are the fields the gateway reads from an access token payload.
type Claims struct {
	jwt.RegisteredClaims

	// SubjectID identifies the user the token was issued to.
	SubjectID string `json:"user_id,omitempty"`

	// Login is the user's login at the identity provider.
	Login string `json:"login,omitempty"`

	// Role is the platform role carried by the token ("Student", "Teacher",
	// "Admin"). Older identity provider builds omit it.
	Role string `json:"role,omitempty"`

	// TokenType distinguishes access from refresh tokens ("access", "refresh").
	TokenType string `json:"type,omitempty"`
}

// Decode extracts the claims from a compact JWT without verifying its
// signature. Any structural failure (wrong segment count, bad base64, invalid
// JSON) is reported as ErrMalformed.
func Decode(token string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return Claims{}, ErrMalformed
	}

	return claims, nil
}

// NearExpiry reports whether the token expires within skew of now. Tokens
// without an exp claim are never considered near expiry; the reactive refresh
// path is the safety net for those.
func NearExpiry(c Claims, now time.Time, skew time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Time.Sub(now) < skew
}
