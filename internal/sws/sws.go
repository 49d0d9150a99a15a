// Package sws queries the Search Web Service (SWS), the shared search
// infrastructure behind NVA. Access is via OAuth2 client credentials
// stored in Secrets Manager.
package sws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/httpx"
)

// SecretName holds the SWS client credentials in the account.
const SecretName = "SearchInfrastructureCredentials"

// Endpoints selects the SWS environment.
type Endpoints struct {
	TokenEndpoint string
	APIEndpoint   string
}

var (
	prodEndpoints = Endpoints{
		TokenEndpoint: "https://sws-auth.auth.eu-west-1.amazoncognito.com/token",
		APIEndpoint:   "https://api.sws.aws.sikt.no",
	}
	nonProdEndpoints = Endpoints{
		TokenEndpoint: "https://sws-auth-dev.auth.eu-west-1.amazoncognito.com/token",
		APIEndpoint:   "https://api.dev.sws.aws.sikt.no",
	}
)

// EndpointsForProfile picks prod endpoints when the profile name
// contains "prod", non-prod otherwise.
func EndpointsForProfile(profile string) Endpoints {
	if strings.Contains(strings.ToLower(profile), "prod") {
		return prodEndpoints
	}
	return nonProdEndpoints
}

// clientCredentials fetches and caches an OAuth2 access token.
type clientCredentials struct {
	tokenEndpoint string
	clientID      string
	clientSecret  string
	http          *http.Client

	mu    sync.Mutex
	token string
}

// Token implements httpx.TokenProvider.
func (c *clientCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperrors.NewRemoteServiceError("token request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", apperrors.NewRemoteServiceError("token request rejected").
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", apperrors.NewRemoteServiceError("token response had no access_token")
	}
	c.token = payload.AccessToken
	return c.token, nil
}

// Service is an authenticated SWS client.
type Service struct {
	endpoints Endpoints
	api       *httpx.Client
}

// SecretsReader is the environment surface the service needs.
type SecretsReader interface {
	SecretJSON(ctx context.Context, name string, v interface{}) error
}

// NewFromEnvironment reads the SWS credentials from the account and
// builds a Service against the endpoints matching the profile name.
func NewFromEnvironment(ctx context.Context, env SecretsReader, profile string, opts ...httpx.Option) (*Service, error) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := env.SecretJSON(ctx, SecretName, &credentials); err != nil {
		return nil, err
	}
	if credentials.Username == "" || credentials.Password == "" {
		return nil, apperrors.NewConfigurationError("missing username or password in secret").
			WithDetail("secret", SecretName)
	}
	return New(EndpointsForProfile(profile), credentials.Username, credentials.Password, opts...), nil
}

// New builds a Service against explicit endpoints.
func New(endpoints Endpoints, clientID, clientSecret string, opts ...httpx.Option) *Service {
	tokens := &clientCredentials{
		tokenEndpoint: endpoints.TokenEndpoint,
		clientID:      clientID,
		clientSecret:  clientSecret,
		http:          http.DefaultClient,
	}
	options := append([]httpx.Option{httpx.WithTokenProvider(tokens)}, opts...)
	return &Service{
		endpoints: endpoints,
		api:       httpx.New(options...),
	}
}

// GetMappings fetches the mapping configuration of a search index.
func (s *Service) GetMappings(ctx context.Context, index string) (map[string]interface{}, error) {
	if index == "" {
		return nil, apperrors.NewValidationError("index name is required")
	}
	var mappings map[string]interface{}
	url := fmt.Sprintf("%s/%s/_mapping", s.endpoints.APIEndpoint, index)
	if err := s.api.GetJSON(ctx, url, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}
