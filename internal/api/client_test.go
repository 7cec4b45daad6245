package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("secret-token"))

	var result struct {
		OK bool `json:"ok"`
	}
	err := c.Get(context.Background(), "/ping", &result, TimeoutShort)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.NotEmpty(t, gotReqID)
	assert.True(t, result.OK)
}

func TestClientNon2xxBecomesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))

	err := c.Get(context.Background(), "/broken", nil, TimeoutShort)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.False(t, IsAuthError(err))
}

func TestClientUnauthorizedFiresHookOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	fired := 0
	c := New(srv.URL, StaticToken("expired"),
		WithOnUnauthorized(func() { fired++ }))

	for i := 0; i < 3; i++ {
		err := c.Get(context.Background(), "/notifications/count", nil, TimeoutShort)
		require.Error(t, err)
		assert.True(t, IsAuthError(err))
	}

	assert.Equal(t, 1, fired, "hook fires once per run of auth failures")
}

func TestClientHookRearmsAfterSuccess(t *testing.T) {
	unauthorized := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unauthorized {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	fired := 0
	c := New(srv.URL, StaticToken("t"),
		WithOnUnauthorized(func() { fired++ }))

	require.Error(t, c.Get(context.Background(), "/a", nil, TimeoutShort))
	assert.Equal(t, 1, fired)

	unauthorized = false
	require.NoError(t, c.Get(context.Background(), "/a", nil, TimeoutShort))

	unauthorized = true
	require.Error(t, c.Get(context.Background(), "/a", nil, TimeoutShort))
	assert.Equal(t, 2, fired, "hook re-arms after a successful call")
}

func TestClientTimeoutSurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))

	err := c.Get(context.Background(), "/slow", nil, 20*time.Millisecond)
	require.Error(t, err)
	assert.False(t, IsAuthError(err))
}

func TestClientTokenSourceErrorShortCircuits(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(srv.URL, func() (string, error) {
		return "", assert.AnError
	})

	err := c.Get(context.Background(), "/a", nil, TimeoutShort)
	require.Error(t, err)
	assert.False(t, called, "no request is sent without a credential")
}
