package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openlearnco/classgate/internal/gateway/service"
	"github.com/openlearnco/classgate/pkg/httpx"
	"github.com/openlearnco/classgate/pkg/slogx"
)

type ProxyHandler struct {
	DispatchService *service.DispatchService
}

// ServeHTTP runs one named business action through the dispatcher.
//
//	@Summary		Proxy a business action
//	@Description	Resolves the session to an access token (refreshing it when
//	@Description	needed) and forwards the action with all supplied parameters to
//	@Description	the resource server. Query parameters and a flat JSON body object
//	@Description	are merged into one parameter set; the downstream status and body
//	@Description	pass through unchanged.
//	@Tags			Proxy
//	@Accept			json
//	@Produce		json
//	@Param			action	path		string				true	"Action name (e.g. VIEW_OWN_NAME)"
//	@Success		200		{string}	string				"Resource server response"
//	@Failure		401		{string}	string				"No session, no token, or session expired"
//	@Failure		500		{string}	string				"Internal proxy error"
//	@Router			/api/proxy/{action} [post].
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, service.MsgNoSession)
		return
	}

	action := r.PathValue("action")
	params, err := collectParams(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	res, err := h.DispatchService.Dispatch(ctx, sessionID, action, params)
	if err != nil {
		log.Error("dispatch failed", "action", action, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.NoCache(w)
	if json.Valid(res.Body) {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(res.Status)
	_, _ = w.Write(res.Body)
}

// collectParams merges URL query parameters with a flat JSON body object.
// Body values win on key collision. Scalars are stringified; nested
// structures are rejected, the downstream contract is flat key/value only.
func collectParams(r *http.Request) (map[string]string, error) {
	params := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}

	if r.Method != http.MethodPost || r.Body == nil || r.ContentLength == 0 {
		return params, nil
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	for k, v := range body {
		switch val := v.(type) {
		case string:
			params[k] = val
		case float64:
			params[k] = formatNumber(val)
		case bool:
			params[k] = fmt.Sprintf("%t", val)
		case nil:
			// Dropped rather than sent as the string "null".
		default:
			return nil, fmt.Errorf("parameter %q is not a scalar", k)
		}
	}
	return params, nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
