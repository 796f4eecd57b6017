package upstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openlearnco/classgate/internal/gateway/upstream"
	"github.com/stretchr/testify/require"
)

func TestResourceCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/task", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "VIEW_OWN_NAME", q.Get("Action"))
		require.Equal(t, "tok-1", q.Get("JWT"))
		require.Equal(t, "u-7", q.Get("ID"))
		require.Equal(t, "Jane", q.Get("New_name"))
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("brewed"))
	}))
	defer srv.Close()

	c := upstream.NewResourceClient(srv.URL)
	res, err := c.Call(context.Background(), "VIEW_OWN_NAME", "tok-1", "u-7",
		map[string]string{"New_name": "Jane"})
	require.NoError(t, err)

	// Status and body pass through untouched, whatever they are.
	require.Equal(t, http.StatusTeapot, res.Status)
	require.Equal(t, "brewed", string(res.Body))
}

func TestResourceCallUnreachable(t *testing.T) {
	c := upstream.NewResourceClient("http://127.0.0.1:1")
	_, err := c.Call(context.Background(), "VIEW_OWN_NAME", "tok", "u", nil)
	require.ErrorIs(t, err, upstream.ErrResourceUnavailable)
}
