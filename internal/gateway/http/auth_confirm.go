package http

import (
	"errors"
	"net/http"

	"github.com/openlearnco/classgate/internal/gateway/service"
	"github.com/openlearnco/classgate/pkg/httpx"
	"github.com/openlearnco/classgate/pkg/slogx"
)

type ConfirmHandler struct {
	HandshakeService *service.HandshakeService

	// RedirectPath is where the browser lands after a confirmed login.
	// Empty means "/".
	RedirectPath string
}

// ServeHTTP is the identity provider's redirect target.
//
//	@Summary		Confirm login
//	@Description	Called by the identity provider's redirect once the user has
//	@Description	authenticated. The session is correlated by cookie and its own
//	@Description	pending login id is verified with the provider; the state and user
//	@Description	query parameters from the redirect are never trusted for identity.
//	@Description	On success the browser is redirected to the application root.
//	@Tags			Auth
//	@Param			state	query	string	false	"Opaque redirect correlation value (unused for identity)"
//	@Param			user	query	string	false	"Display name claimed by the redirect"
//	@Success		302		"Login confirmed, redirecting"
//	@Failure		401		{object}	httpx.ErrorResponse	"No session or login not confirmed"
//	@Router			/api/auth/confirm [get].
func (h *ConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, service.MsgNoSession)
		return
	}

	claimedName := r.URL.Query().Get("user")

	err := h.HandshakeService.ConfirmLogin(ctx, sessionID, claimedName)
	switch {
	case err == nil:
		http.Redirect(w, r, h.redirectPath(), http.StatusFound)
	case errors.Is(err, service.ErrNoSession), errors.Is(err, service.ErrNoPendingLogin):
		httpx.WriteError(w, http.StatusUnauthorized, service.MsgNoSession)
	case errors.Is(err, service.ErrLoginNotConfirmed):
		httpx.WriteError(w, http.StatusUnauthorized, "login not confirmed")
	default:
		log.Error("failed to confirm login", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *ConfirmHandler) redirectPath() string {
	if h.RedirectPath != "" {
		return h.RedirectPath
	}
	return "/"
}
