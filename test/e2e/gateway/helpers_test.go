package gateway_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	httpapi "github.com/openlearnco/classgate/internal/gateway/http"
	"github.com/openlearnco/classgate/internal/gateway/service"
	"github.com/openlearnco/classgate/internal/gateway/store"
	redisdriver "github.com/openlearnco/classgate/internal/gateway/store/drivers/redis"
	"github.com/openlearnco/classgate/internal/gateway/upstream"
	"github.com/openlearnco/classgate/pkg/tokenx"
)

/*
 * Helpers for gateway end-to-end tests: a redis container for the session
 * store, a scriptable fake identity provider, a fake resource server that
 * actually checks token expiry, and an in-process gateway wired together
 * the same way the application does it.
 */

// setupRedisStore starts a redis container and returns a store backed by it.
func setupRedisStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	st := redisdriver.NewStore(fmt.Sprintf("%s:%s", host, mappedPort.Port()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// mintAccessToken issues a structurally valid token; the gateway never
// verifies the signature, the fake resource server only reads the claims.
func mintAccessToken(t *testing.T, subjectID, login, role string, expiresIn time.Duration) string {
	t.Helper()

	claims := tokenx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
		SubjectID: subjectID,
		Login:     login,
		Role:      role,
		TokenType: "access",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("e2e-key"))
	require.NoError(t, err)
	return token
}

// fakeIdP emulates the identity provider's four endpoints. Logins become
// granted only when the test calls Grant for the pending login token.
type fakeIdP struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	grants  map[string]upstream.CheckResult // keyed by login token
	tokens  []string                        // access tokens handed out by /refresh, in order
	revoked []string
}

func newFakeIdP(t *testing.T) *fakeIdP {
	f := &fakeIdP{t: t, grants: make(map[string]upstream.CheckResult)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/init", func(w http.ResponseWriter, r *http.Request) {
		loginToken := r.URL.Query().Get("login_token")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"auth_url": f.srv.URL + "/authorize?state=" + loginToken,
		})
	})
	mux.HandleFunc("GET /api/auth/check/{token}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		res, ok := f.grants[r.PathValue("token")]
		f.mu.Unlock()
		if !ok {
			res = upstream.CheckResult{Status: upstream.LoginPending}
		}
		_ = json.NewEncoder(w).Encode(res)
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !strings.HasPrefix(body["refresh_token"], "rt-") {
			http.Error(w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		token := mintAccessToken(f.t, "u-1", "jdoe", "Student", time.Hour)
		f.mu.Lock()
		f.tokens = append(f.tokens, token)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": token})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.revoked = append(f.revoked, body["refresh_token"])
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// Grant marks a pending login as confirmed with the given access token.
func (f *fakeIdP) Grant(loginToken, userName, accessToken string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants[loginToken] = upstream.CheckResult{
		Status:       upstream.LoginGranted,
		UserName:     userName,
		AccessToken:  accessToken,
		RefreshToken: "rt-" + loginToken,
	}
}

// pendingTokenFromAuthURL extracts the login token the gateway correlated
// to the handshake from the auth_url it returned.
func pendingTokenFromAuthURL(t *testing.T, authURL string) string {
	t.Helper()
	i := strings.LastIndex(authURL, "state=")
	require.GreaterOrEqual(t, i, 0)
	return authURL[i+len("state="):]
}

// fakeResourceServer answers /task, rejecting expired or unreadable tokens
// with the same 401 the real one sends.
func newFakeResourceServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		claims, err := tokenx.Decode(q.Get("JWT"))
		if err != nil || claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
			http.Error(w, "ERROR 401: Token expired", http.StatusUnauthorized)
			return
		}

		switch q.Get("Action") {
		case "VIEW_OWN_NAME":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"user_id": claims.SubjectID,
				"name":    claims.Login,
			})
		case "ECHO":
			_ = json.NewEncoder(w).Encode(map[string]string{"echo": q.Get("Value")})
		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// startGateway wires services onto a router exactly like the application
// does and serves it in-process. The returned client carries cookies.
func startGateway(t *testing.T, st store.Store, idpURL, resourceURL string) (*httptest.Server, *http.Client) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	idp := upstream.NewIdentityClient(idpURL)
	resource := upstream.NewResourceClient(resourceURL)

	refresher := &service.RefreshService{Store: st, IdP: idp}

	router := httpapi.NewRouter("e2e", st, logger)
	router.HandshakeService = &service.HandshakeService{
		Store:          st,
		IdP:            idp,
		FallbackPolicy: service.PolicyStrict,
	}
	router.DispatchService = &service.DispatchService{
		Store:     st,
		Refresher: refresher,
		Resource:  resource,
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return srv, client
}

func getJSON[T any](t *testing.T, client *http.Client, url string) (int, T) {
	t.Helper()

	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out T
	if resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}
