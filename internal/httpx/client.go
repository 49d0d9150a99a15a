// Package httpx is a small JSON-over-HTTP client shared by the NVA
// REST API services. It retries transient failures and attaches the
// caller's bearer token or static headers.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

// TokenProvider supplies a bearer token per request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client issues JSON requests with retry on 5xx and network errors.
type Client struct {
	http    *retryablehttp.Client
	tokens  TokenProvider
	headers map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithTokenProvider attaches bearer-token auth.
func WithTokenProvider(tokens TokenProvider) Option {
	return func(c *Client) { c.tokens = tokens }
}

// WithHeader attaches a static header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http.HTTPClient = httpClient }
}

// WithRetryWait overrides the retry backoff window.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = min
		c.http.RetryWaitMax = max
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	inner := retryablehttp.NewClient()
	inner.RetryMax = 4
	inner.Logger = nil

	c := &Client{
		http:    inner,
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON issues a GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	return c.DoJSON(ctx, http.MethodGet, url, nil, out)
}

// DoJSON issues a request with an optional JSON body and decodes the
// JSON response into out (when out is non-nil).
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewRemoteServiceError(fmt.Sprintf("%s %s failed", method, url)).WithCause(err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s not found", url)).
			WithDetail("status", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return apperrors.NewRemoteServiceError(fmt.Sprintf("%s %s rejected", method, url)).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(responseBody))
	}

	if out != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return fmt.Errorf("decode response from %s: %w", url, err)
		}
	}
	return nil
}
