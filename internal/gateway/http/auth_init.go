package http

import (
	"net/http"

	"github.com/openlearnco/classgate/internal/gateway/service"
	"github.com/openlearnco/classgate/pkg/httpx"
	"github.com/openlearnco/classgate/pkg/slogx"
)

type InitHandler struct {
	HandshakeService *service.HandshakeService
}

// InitLoginResponse is returned when a login handshake starts.
type InitLoginResponse struct {
	AuthURL string `json:"auth_url"`
}

// ServeHTTP starts a login handshake.
//
//	@Summary		Initiate login
//	@Description	Creates an anonymous session, asks the identity provider for a
//	@Description	provider-specific authorization URL, sets the session cookie, and
//	@Description	returns the URL for the browser to navigate to.
//	@Tags			Auth
//	@Produce		json
//	@Param			type	query		string				true	"Login provider type (e.g. github)"
//	@Success		200		{object}	InitLoginResponse	"auth_url"
//	@Failure		400		{object}	httpx.ErrorResponse	"Missing login type"
//	@Failure		502		{object}	httpx.ErrorResponse	"Identity provider unavailable"
//	@Router			/api/auth/init [get].
func (h *InitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	loginType := r.URL.Query().Get("type")
	if loginType == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing login type")
		return
	}

	sessionID, authURL, err := h.HandshakeService.InitLogin(ctx, loginType)
	if err != nil {
		log.Warn("failed to initiate login", "login_type", loginType, "err", err)
		httpx.WriteError(w, http.StatusBadGateway, "identity provider unavailable")
		return
	}

	setSessionCookie(w, sessionID)
	httpx.WriteJSON(w, http.StatusOK, InitLoginResponse{AuthURL: authURL})
}
