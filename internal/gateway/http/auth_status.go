package http

import (
	"errors"
	"net/http"

	"github.com/openlearnco/classgate/internal/gateway/service"
	"github.com/openlearnco/classgate/pkg/httpx"
	"github.com/openlearnco/classgate/pkg/slogx"
)

type StatusHandler struct {
	HandshakeService *service.HandshakeService
}

// ServeHTTP reports the caller's session state.
//
//	@Summary		Get session status
//	@Description	Returns the session's status, display name, and role. While a login
//	@Description	is pending this endpoint also checks the identity provider and
//	@Description	auto-promotes the session on a grant, so the UI can poll it instead
//	@Description	of depending on the redirect. Tokens are never included.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	service.SessionView	"status, display_name, role"
//	@Failure		401	{object}	httpx.ErrorResponse	"No session"
//	@Router			/api/auth/status [get].
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, service.MsgNoSession)
		return
	}

	view, err := h.HandshakeService.PollStatus(ctx, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrNoSession) {
			httpx.WriteError(w, http.StatusUnauthorized, service.MsgNoSession)
			return
		}
		log.Error("failed to poll session status", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, view)
}
