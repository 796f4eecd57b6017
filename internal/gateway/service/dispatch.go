package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openlearnco/classgate/internal/gateway/store"
	"github.com/openlearnco/classgate/internal/gateway/upstream"
	"github.com/openlearnco/classgate/pkg/slogx"
	"github.com/openlearnco/classgate/pkg/tokenx"
)

// Normalized bodies for conditions the dispatcher settles itself. Everything
// else passes through from the resource server unchanged.
const (
	MsgNoSession      = "No session"
	MsgNoToken        = "No access token"
	MsgSessionExpired = "Session expired completely. Please login again."
	MsgProxyError     = "Internal proxy error"
)

// Expiry markers the resource server is known to emit in 200-status bodies.
// Kept as a compatibility shim alongside the structured error_code field.
var legacyExpiryMarkers = [][]byte{
	[]byte("ERROR 401"),
	[]byte("Token expired"),
}

// Result is what a dispatched call resolves to: a status code and body,
// either passed through from the resource server or normalized locally.
type Result struct {
	Status int
	Body   []byte
}

func textResult(status int, msg string) Result {
	return Result{Status: status, Body: []byte(msg)}
}

// DispatchService resolves a session to a usable access token, performs the
// downstream call, and runs the refresh-and-retry protocol around it.
type DispatchService struct {
	Store     store.Store
	Refresher *RefreshService
	Resource  ResourceCaller

	// Skew is the proactive-refresh window: a token expiring sooner than
	// this is refreshed before use. Zero means tokenx.DefaultSkew.
	Skew time.Duration
}

// Dispatch runs one business action on behalf of a session.
//
// The call sequence is: load session, proactively refresh if the token is
// about to expire, call the resource server, and if the response still
// signals token expiry, refresh reactively and retry exactly once. The
// request carries its own token through the retry rather than re-reading
// the store, so a concurrent refresh for the same session can never hand
// this request a token it did not obtain itself.
//
// The error return is reserved for backing-store failures; every outcome
// the protocol defines, including downstream errors, comes back as a Result.
func (s *DispatchService) Dispatch(ctx context.Context, sessionID, action string, params map[string]string) (Result, error) {
	l := slogx.FromContext(ctx)

	rec, err := s.Store.Sessions().Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return textResult(http.StatusUnauthorized, MsgNoSession), nil
		}
		return Result{}, fmt.Errorf("failed to load session: %w", err)
	}
	if rec.AccessToken == "" {
		return textResult(http.StatusUnauthorized, MsgNoToken), nil
	}

	token := rec.AccessToken

	// Proactive check. A non-decodable token skips this and falls through
	// to the downstream call; the reactive path is the safety net.
	if claims, err := tokenx.Decode(token); err == nil {
		if tokenx.NearExpiry(claims, time.Now(), s.skew()) {
			fresh, err := s.Refresher.Refresh(ctx, sessionID, rec.RefreshToken)
			if err != nil {
				// Continue with the old token; the downstream call
				// decides whether it is actually stale.
				l.Warn("proactive refresh failed, continuing with current token",
					slog.String("action", action),
					slog.Any("error", err))
			} else {
				token = fresh
			}
		}
	}

	res, err := s.call(ctx, action, token, params)
	if err != nil {
		l.Error("resource call failed", slog.String("action", action), slog.Any("error", err))
		return textResult(http.StatusInternalServerError, MsgProxyError), nil
	}
	if !isExpirySignal(res) {
		return Result(res), nil
	}

	// Reactive path: the token was stale despite the proactive check.
	// One refresh, one retry, and the retried result stands regardless.
	fresh, err := s.Refresher.Refresh(ctx, sessionID, rec.RefreshToken)
	if err != nil {
		l.Info("reactive refresh failed, session requires re-authentication",
			slog.String("action", action),
			slog.Any("error", err))
		return textResult(http.StatusUnauthorized, MsgSessionExpired), nil
	}

	res, err = s.call(ctx, action, fresh, params)
	if err != nil {
		l.Error("resource retry failed", slog.String("action", action), slog.Any("error", err))
		return textResult(http.StatusInternalServerError, MsgProxyError), nil
	}
	return Result(res), nil
}

// call derives the subject id from the token in hand and performs the
// downstream request. The subject id is best-effort: a malformed token
// yields an empty id and lets the resource server reject the call itself.
func (s *DispatchService) call(ctx context.Context, action, token string, params map[string]string) (upstream.ResourceResult, error) {
	var subjectID string
	if claims, err := tokenx.Decode(token); err == nil {
		subjectID = claims.SubjectID
	}
	return s.Resource.Call(ctx, action, token, subjectID, params)
}

func (s *DispatchService) skew() time.Duration {
	if s.Skew > 0 {
		return s.Skew
	}
	return tokenx.DefaultSkew
}

// isExpirySignal decides whether a downstream response means the token was
// stale. A 401 status is authoritative; the structured error_code field is
// preferred for non-401 bodies, with the legacy substring markers kept for
// resource servers that still answer 200 with an error string.
func isExpirySignal(res upstream.ResourceResult) bool {
	if res.Status == http.StatusUnauthorized {
		return true
	}

	var probe struct {
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(res.Body, &probe); err == nil && probe.ErrorCode == "token_expired" {
		return true
	}

	for _, marker := range legacyExpiryMarkers {
		if bytes.Contains(res.Body, marker) {
			return true
		}
	}
	return false
}
