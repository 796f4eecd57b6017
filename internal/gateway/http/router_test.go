package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openlearnco/classgate/internal/gateway/domain"
	"github.com/openlearnco/classgate/internal/gateway/service"
	"github.com/openlearnco/classgate/internal/gateway/store"
	"github.com/openlearnco/classgate/internal/gateway/store/drivers/memory"
	"github.com/openlearnco/classgate/internal/gateway/upstream"
	"github.com/openlearnco/classgate/pkg/tokenx"
	"github.com/stretchr/testify/require"
)

type stubIdP struct {
	authURL string
	check   upstream.CheckResult
	refresh string

	refreshCalls int
	revokeCalls  int
}

func (s *stubIdP) InitLogin(ctx context.Context, loginType, loginToken string) (string, error) {
	return s.authURL, nil
}

func (s *stubIdP) CheckLogin(ctx context.Context, loginToken string) (upstream.CheckResult, error) {
	return s.check, nil
}

func (s *stubIdP) Refresh(ctx context.Context, refreshToken string) (string, error) {
	s.refreshCalls++
	return s.refresh, nil
}

func (s *stubIdP) RevokeRefreshToken(ctx context.Context, refreshToken string, all bool) error {
	s.revokeCalls++
	return nil
}

type stubResource struct {
	result upstream.ResourceResult

	lastAction string
	lastToken  string
	lastParams map[string]string
}

func (s *stubResource) Call(ctx context.Context, action, token, subjectID string, params map[string]string) (upstream.ResourceResult, error) {
	s.lastAction = action
	s.lastToken = token
	s.lastParams = params
	return s.result, nil
}

func testToken(t *testing.T, role string, expiresIn time.Duration) string {
	t.Helper()
	claims := tokenx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
		SubjectID: "u-1",
		Role:      role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func newTestRouter(st store.Store, idp service.IdentityProvider, res service.ResourceCaller) *Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter("test", st, logger)
	r.HandshakeService = &service.HandshakeService{Store: st, IdP: idp, FallbackPolicy: service.PolicyStrict}
	r.DispatchService = &service.DispatchService{
		Store:     st,
		Refresher: &service.RefreshService{Store: st, IdP: idp},
		Resource:  res,
	}
	r.ApplyRoutes()
	return r
}

func withSessionCookie(req *http.Request, sessionID string) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})
	return req
}

func TestStatusEndpoint(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	router := newTestRouter(st, &stubIdP{}, &stubResource{})

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authorized session", func(t *testing.T) {
		require.NoError(t, st.Sessions().Put(ctx, "s-1", domain.Session{
			Status:      domain.StatusAuthorized,
			DisplayName: "Jane",
			Role:        domain.RoleTeacher,
			AccessToken: "tok",
		}, time.Hour))

		rec := httptest.NewRecorder()
		req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/auth/status", nil), "s-1")
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var view service.SessionView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		require.Equal(t, domain.StatusAuthorized, view.Status)
		require.Equal(t, "Jane", view.DisplayName)
		require.Equal(t, domain.RoleTeacher, view.Role)

		// Tokens must never leak to the browser.
		require.NotContains(t, rec.Body.String(), "tok")
	})
}

func TestInitEndpoint(t *testing.T) {
	st := memory.NewStore()
	router := newTestRouter(st, &stubIdP{authURL: "https://idp.example/authorize"}, &stubResource{})

	t.Run("missing type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/init", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("sets the session cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/init?type=github", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var body InitLoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "https://idp.example/authorize", body.AuthURL)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, SessionCookieName, cookies[0].Name)
		require.NotEmpty(t, cookies[0].Value)
		require.True(t, cookies[0].HttpOnly)
	})
}

func TestConfirmEndpoint(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	idp := &stubIdP{
		authURL: "https://idp.example/authorize",
		check: upstream.CheckResult{
			Status:       upstream.LoginGranted,
			UserName:     "jdoe",
			AccessToken:  testToken(t, "Student", time.Hour),
			RefreshToken: "rt-1",
		},
	}
	router := newTestRouter(st, idp, &stubResource{})

	// Start a handshake through the real endpoint to get a session cookie.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/init?type=github", nil))
	sessionID := rec.Result().Cookies()[0].Value

	rec = httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/auth/confirm?state=x&user=jdoe", nil), sessionID)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	sess, err := st.Sessions().Get(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAuthorized, sess.Status)
	require.Equal(t, domain.RoleStudent, sess.Role)
}

func TestLogoutEndpoint(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	idp := &stubIdP{}
	router := newTestRouter(st, idp, &stubResource{})

	require.NoError(t, st.Sessions().Put(ctx, "s-1", domain.Session{
		Status:       domain.StatusAuthorized,
		RefreshToken: "rt-1",
	}, time.Hour))

	rec := httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodPost, "/api/auth/logout?all=true", nil), "s-1")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 1, idp.revokeCalls)

	_, err := st.Sessions().Get(ctx, "s-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)
	require.Negative(t, cookies[0].MaxAge)
}

func TestProxyEndpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("no cookie", func(t *testing.T) {
		router := newTestRouter(memory.NewStore(), &stubIdP{}, &stubResource{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/proxy/VIEW_OWN_NAME", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("merges query and body parameters", func(t *testing.T) {
		st := memory.NewStore()
		token := testToken(t, "Student", time.Hour)
		require.NoError(t, st.Sessions().Put(ctx, "s-1", domain.Session{
			Status:       domain.StatusAuthorized,
			AccessToken:  token,
			RefreshToken: "rt-1",
		}, time.Hour))

		downstream := &stubResource{result: upstream.ResourceResult{
			Status: http.StatusOK,
			Body:   []byte(`{"saved":true}`),
		}}
		router := newTestRouter(st, &stubIdP{}, downstream)

		body := strings.NewReader(`{"Text":"2+2?","Points":3,"Graded":true}`)
		req := httptest.NewRequest(http.MethodPost, "/api/proxy/SAVE_QUESTION?Test_id=t-9", body)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, withSessionCookie(req, "s-1"))

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"saved":true}`, rec.Body.String())

		require.Equal(t, "SAVE_QUESTION", downstream.lastAction)
		require.Equal(t, token, downstream.lastToken)
		require.Equal(t, map[string]string{
			"Test_id": "t-9",
			"Text":    "2+2?",
			"Points":  "3",
			"Graded":  "true",
		}, downstream.lastParams)
	})

	t.Run("nested body parameters are rejected", func(t *testing.T) {
		st := memory.NewStore()
		require.NoError(t, st.Sessions().Put(ctx, "s-1", domain.Session{
			Status:      domain.StatusAuthorized,
			AccessToken: testToken(t, "Student", time.Hour),
		}, time.Hour))
		router := newTestRouter(st, &stubIdP{}, &stubResource{})

		req := httptest.NewRequest(http.MethodPost, "/api/proxy/SAVE_QUESTION", strings.NewReader(`{"nested":{"a":1}}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, withSessionCookie(req, "s-1"))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("downstream status passes through", func(t *testing.T) {
		st := memory.NewStore()
		require.NoError(t, st.Sessions().Put(ctx, "s-1", domain.Session{
			Status:      domain.StatusAuthorized,
			AccessToken: testToken(t, "Student", time.Hour),
		}, time.Hour))

		downstream := &stubResource{result: upstream.ResourceResult{
			Status: http.StatusForbidden,
			Body:   []byte("not yours"),
		}}
		router := newTestRouter(st, &stubIdP{}, downstream)

		req := httptest.NewRequest(http.MethodGet, "/api/proxy/VIEW_TEST", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, withSessionCookie(req, "s-1"))

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "not yours", rec.Body.String())
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(memory.NewStore(), &stubIdP{}, &stubResource{})

	for _, path := range []string{"/livez", "/readyz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)

		var health HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		require.Equal(t, "ok", health.Status)
	}
}
