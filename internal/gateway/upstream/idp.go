// Package upstream holds the gateway's HTTP clients for its two external
// collaborators: the identity provider (login handshake, token refresh,
// remote revocation) and the resource server (business actions).
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrRefreshRejected means the identity provider explicitly denied the
	// refresh token (revoked or expired). The user must re-authenticate;
	// retrying is pointless.
	ErrRefreshRejected = errors.New("upstream: refresh token rejected")

	// ErrUnavailable covers identity provider unreachability and malformed
	// responses. Terminal for the current request, but the session stays
	// intact so a later request may succeed.
	ErrUnavailable = errors.New("upstream: identity provider unavailable")
)

// Login confirmation states reported by the identity provider.
const (
	LoginGranted = "granted"
	LoginPending = "pending"
)

// CheckResult is the identity provider's answer to a pending-login poll.
type CheckResult struct {
	Status       string `json:"status"`
	UserName     string `json:"user_name"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IdentityClient talks to the identity provider. It is constructed once and
// injected; there are no package-level connection singletons.
type IdentityClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewIdentityClient creates a client with a bounded per-call timeout so a
// hung identity provider cannot stall inbound requests indefinitely.
func NewIdentityClient(baseURL string) *IdentityClient {
	return &IdentityClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// InitLogin asks the provider for a login redirect URL correlated to
// loginToken.
func (c *IdentityClient) InitLogin(ctx context.Context, loginType, loginToken string) (string, error) {
	q := url.Values{
		"type":        {loginType},
		"login_token": {loginToken},
	}

	resp, err := c.get(ctx, "/api/auth/init?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: init returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		AuthURL string `json:"auth_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AuthURL == "" {
		return "", fmt.Errorf("%w: init returned no auth_url", ErrUnavailable)
	}
	return body.AuthURL, nil
}

// CheckLogin polls the confirmation status of a pending login.
func (c *IdentityClient) CheckLogin(ctx context.Context, loginToken string) (CheckResult, error) {
	resp, err := c.get(ctx, "/api/auth/check/"+url.PathEscape(loginToken))
	if err != nil {
		return CheckResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CheckResult{}, fmt.Errorf("%w: check returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var result CheckResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return CheckResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}

// Refresh exchanges a refresh token for a new access token. A non-2xx answer
// is an explicit rejection; everything else that goes wrong is unavailability.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.postJSON(ctx, "/api/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", ErrRefreshRejected
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AccessToken == "" {
		return "", fmt.Errorf("%w: refresh returned no access_token", ErrUnavailable)
	}
	return body.AccessToken, nil
}

// RevokeRefreshToken asks the provider to revoke the refresh token
// server-side. When all is set every device's refresh token is revoked, not
// just this one.
func (c *IdentityClient) RevokeRefreshToken(ctx context.Context, refreshToken string, all bool) error {
	path := "/api/auth/logout"
	if all {
		path += "?all=true"
	}

	resp, err := c.postJSON(ctx, path, map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("revoke returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *IdentityClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.HTTPClient.Do(req)
}

func (c *IdentityClient) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.HTTPClient.Do(req)
}
