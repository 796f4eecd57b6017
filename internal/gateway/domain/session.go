package domain

import "time"

// Status is the lifecycle state of a browser session. A session only ever
// moves Anonymous -> Authorized; it is never demoted, only deleted (logout)
// or allowed to lapse via TTL.
type Status string

const (
	StatusAnonymous  Status = "Anonymous"
	StatusAuthorized Status = "Authorized"
)

// Role is the platform role carried by an access token. The token payload is
// the source of truth; the cached copy exists only so the UI can render
// without decoding tokens client-side.
type Role string

const (
	RoleStudent Role = "Student"
	RoleTeacher Role = "Teacher"
	RoleAdmin   Role = "Admin"
)

// ParseRole maps a token claim value onto a known Role. Unknown or empty
// values degrade to Student, matching the identity provider's own default.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleTeacher:
		return RoleTeacher
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleStudent
	}
}

// Session is the cached authorization state for one browser, keyed in the
// store by the opaque session cookie value. Writes are always whole-record
// replacements; there are no field-level patches.
type Session struct {
	Status Status `json:"status"`

	// PendingLoginID correlates an Anonymous session to an in-flight identity
	// provider handshake. Cleared on promotion.
	PendingLoginID string `json:"pending_login_id,omitempty"`

	DisplayName string `json:"display_name,omitempty"`
	Role        Role   `json:"role,omitempty"`

	// AccessToken is the short-lived bearer credential forwarded to the
	// resource server. Opaque to the store.
	AccessToken string `json:"access_token,omitempty"`

	// RefreshToken is the long-lived credential used only by the refresh
	// coordinator.
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Authorized reports whether the session has completed the login handshake.
func (s Session) Authorized() bool { return s.Status == StatusAuthorized }

// Default session TTLs. An anonymous session only needs to survive the login
// redirect round trip; an authorized one lives a full hour and has its window
// reset on every successful token refresh.
const (
	AnonymousTTL  = 10 * time.Minute
	AuthorizedTTL = time.Hour
)
