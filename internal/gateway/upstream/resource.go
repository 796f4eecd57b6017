package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrResourceUnavailable reports that the resource server could not be
// reached at all. It is never an authorization signal and never retried.
var ErrResourceUnavailable = errors.New("upstream: resource server unavailable")

// ResourceResult is the normalized outcome of a resource server call: the
// downstream status code and body, passed through byte-for-byte.
type ResourceResult struct {
	Status int
	Body   []byte
}

// ResourceClient calls the resource server's generic task endpoint. Every
// business operation the gateway proxies is one invocation of this single
// contract: an action name, a bearer token, the token's subject id, and a
// flat set of extra parameters.
type ResourceClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewResourceClient(baseURL string) *ResourceClient {
	return &ResourceClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Call performs a task request. Any HTTP status from the server, including
// 401, is returned as a result, not an error; errors mean the call never
// completed.
func (c *ResourceClient) Call(
	ctx context.Context,
	action, token, subjectID string,
	params map[string]string,
) (ResourceResult, error) {
	q := url.Values{
		"Action": {action},
		"JWT":    {token},
		"ID":     {subjectID},
	}
	for k, v := range params {
		q.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/task?"+q.Encode(), nil)
	if err != nil {
		return ResourceResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ResourceResult{}, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ResourceResult{}, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}

	return ResourceResult{Status: resp.StatusCode, Body: body}, nil
}
