package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openlearnco/classgate/internal/gateway/upstream"
	"github.com/openlearnco/classgate/pkg/tokenx"
	"github.com/stretchr/testify/require"
)

// mintToken produces a structurally valid signed JWT carrying the gateway's
// claim set. The signature is throwaway; nothing in the gateway verifies it.
func mintToken(t *testing.T, subjectID, role string, expiresIn time.Duration) string {
	t.Helper()

	claims := tokenx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
		SubjectID: subjectID,
		Role:      role,
		TokenType: "access",
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

// fakeIdP is a scriptable IdentityProvider that counts calls.
type fakeIdP struct {
	initURL  string
	initErr  error
	check    upstream.CheckResult
	checkErr error

	refreshTokens []string // returned in sequence, last one repeats
	refreshErr    error

	initCalls    int
	checkCalls   int
	refreshCalls int
	revokeCalls  int
	revokedAll   bool
	lastRefresh  string
}

func (f *fakeIdP) InitLogin(ctx context.Context, loginType, loginToken string) (string, error) {
	f.initCalls++
	if f.initErr != nil {
		return "", f.initErr
	}
	return f.initURL, nil
}

func (f *fakeIdP) CheckLogin(ctx context.Context, loginToken string) (upstream.CheckResult, error) {
	f.checkCalls++
	if f.checkErr != nil {
		return upstream.CheckResult{}, f.checkErr
	}
	return f.check, nil
}

func (f *fakeIdP) Refresh(ctx context.Context, refreshToken string) (string, error) {
	f.refreshCalls++
	f.lastRefresh = refreshToken
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	i := f.refreshCalls - 1
	if i >= len(f.refreshTokens) {
		i = len(f.refreshTokens) - 1
	}
	return f.refreshTokens[i], nil
}

func (f *fakeIdP) RevokeRefreshToken(ctx context.Context, refreshToken string, all bool) error {
	f.revokeCalls++
	f.revokedAll = all
	return nil
}

// fakeResource answers scripted results in sequence (last one repeats) and
// records the token each call carried.
type fakeResource struct {
	results []upstream.ResourceResult
	err     error

	calls      int
	seenTokens []string
	seenIDs    []string
}

func (f *fakeResource) Call(ctx context.Context, action, token, subjectID string, params map[string]string) (upstream.ResourceResult, error) {
	f.calls++
	f.seenTokens = append(f.seenTokens, token)
	f.seenIDs = append(f.seenIDs, subjectID)
	if f.err != nil {
		return upstream.ResourceResult{}, f.err
	}
	i := f.calls - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], nil
}
