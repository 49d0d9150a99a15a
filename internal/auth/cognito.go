// Package auth obtains OAuth2 client-credentials tokens from the
// account's Cognito endpoint for calls to the NVA backend APIs.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

// expiryMargin treats a token as expired slightly early so an almost
// stale token is never sent.
const expiryMargin = 30 * time.Second

// ClientCredentials is the shape of the BackendCognitoClientCredentials secret.
type ClientCredentials struct {
	ClientID     string `json:"backendClientId"`
	ClientSecret string `json:"backendClientSecret"`
}

// TokenSource fetches and caches a bearer token, refreshing it when
// it is within the expiry margin.
type TokenSource struct {
	httpClient *retryablehttp.Client
	tokenURL   string
	creds      ClientCredentials

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenSource builds a token source for a Cognito base URI.
func NewTokenSource(cognitoURI string, creds ClientCredentials) *TokenSource {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &TokenSource{
		httpClient: client,
		tokenURL:   strings.TrimSuffix(cognitoURI, "/") + "/oauth2/token",
		creds:      creds,
	}
}

// NewTokenSourceForEndpoint uses a complete token endpoint URL, for
// services with their own auth domain.
func NewTokenSourceForEndpoint(tokenURL string, creds ClientCredentials) *TokenSource {
	ts := NewTokenSource("", creds)
	ts.tokenURL = tokenURL
	return ts
}

// Token returns a valid bearer token, requesting a new one if needed.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expiry.Add(-expiryMargin)) {
		return ts.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {ts.creds.ClientID},
		"client_secret": {ts.creds.ClientSecret},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewRemoteServiceError("token request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != 200 {
		return "", apperrors.NewRemoteServiceError("token request rejected").
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(body))
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	ts.token = tokenResponse.AccessToken
	ts.expiry = time.Now().Add(time.Duration(tokenResponse.ExpiresIn) * time.Second)
	return ts.token, nil
}
