package http

import (
	"net/http"

	"github.com/openlearnco/classgate/internal/gateway/service"
	"github.com/openlearnco/classgate/pkg/httpx"
	"github.com/openlearnco/classgate/pkg/slogx"
)

type LogoutHandler struct {
	HandshakeService *service.HandshakeService
}

// ServeHTTP ends the caller's session.
//
//	@Summary		Logout
//	@Description	Deletes the session and clears the cookie. With all=true the
//	@Description	stored refresh token is also revoked at the identity provider,
//	@Description	ending every device's sessions.
//	@Tags			Auth
//	@Param			all	query	string	false	"Set to true to revoke everywhere"
//	@Success		204	"Session ended"
//	@Router			/api/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessionID := sessionIDFromRequest(r)
	if sessionID != "" {
		revokeEverywhere := r.URL.Query().Get("all") == "true"
		if err := h.HandshakeService.Logout(ctx, sessionID, revokeEverywhere); err != nil {
			log.Error("failed to end session", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	// Clearing the cookie is unconditional; logging out without a session
	// is not an error.
	clearSessionCookie(w)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
