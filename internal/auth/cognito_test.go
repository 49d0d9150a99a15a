package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, expiresIn int, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostFormValue("grant_type"))
		assert.Equal(t, "id-1", r.PostFormValue("client_id"))
		assert.Equal(t, "s3cret", r.PostFormValue("client_secret"))

		*requests++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","expires_in":%d}`, *requests, expiresIn)
	}))
}

func TestTokenIsCachedUntilExpiry(t *testing.T) {
	requests := 0
	server := newTokenServer(t, 3600, &requests)
	defer server.Close()

	ts := NewTokenSourceForEndpoint(server.URL, ClientCredentials{ClientID: "id-1", ClientSecret: "s3cret"})

	first, err := ts.Token(context.Background())
	require.NoError(t, err)
	second, err := ts.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "token-1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, requests)
}

func TestTokenRefreshesWhenInsideExpiryMargin(t *testing.T) {
	requests := 0
	// expires_in below the 30s margin forces a refresh on next use
	server := newTokenServer(t, 10, &requests)
	defer server.Close()

	ts := NewTokenSourceForEndpoint(server.URL, ClientCredentials{ClientID: "id-1", ClientSecret: "s3cret"})

	first, err := ts.Token(context.Background())
	require.NoError(t, err)
	second, err := ts.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "token-1", first)
	assert.Equal(t, "token-2", second)
	assert.Equal(t, 2, requests)
}

func TestTokenRequestRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad client", http.StatusBadRequest)
	}))
	defer server.Close()

	ts := NewTokenSourceForEndpoint(server.URL, ClientCredentials{})
	_, err := ts.Token(context.Background())
	assert.Error(t, err)
}

func TestNewTokenSourceBuildsTokenURL(t *testing.T) {
	ts := NewTokenSource("https://auth.example.org/", ClientCredentials{})
	assert.Equal(t, "https://auth.example.org/oauth2/token", ts.tokenURL)
}
