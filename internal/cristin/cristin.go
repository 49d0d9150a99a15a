// Package cristin talks to the Cristin REST API directly, bypassing
// NVA. The API sits behind a bot filter and requires basic auth, both
// resolved from the account's parameters and secrets.
package cristin

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/httpx"
)

// Parameter and secret names published by the Cristin integration.
const (
	ParamRestAPI           = "cristinRestApi"
	ParamBypassHeaderName  = "CristinBotFilterBypassHeaderName"
	ParamBypassHeaderValue = "CristinBotFilterBypassHeaderValue"
	SecretBasicAuth        = "CristinClientBasicAuth"

	// RepresentingInstitution identifies Sikt towards Cristin.
	RepresentingInstitution = "20754"
)

type basicAuthSecret struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Person is an arbitrary Cristin person document.
type Person = map[string]interface{}

// Service is an authenticated Cristin API client.
type Service struct {
	baseURL string
	api     *httpx.Client
	patch   *httpx.Client
}

// SettingsResolver is the environment surface the service needs.
type SettingsResolver interface {
	Parameter(ctx context.Context, name string) (string, error)
	SecretJSON(ctx context.Context, name string, v interface{}) error
}

// NewFromEnvironment resolves the Cristin endpoint and credentials
// from the account and builds a Service. Extra options are applied to
// both underlying clients.
func NewFromEnvironment(ctx context.Context, env SettingsResolver, opts ...httpx.Option) (*Service, error) {
	host, err := env.Parameter(ctx, ParamRestAPI)
	if err != nil {
		return nil, err
	}
	bypassName, err := env.Parameter(ctx, ParamBypassHeaderName)
	if err != nil {
		return nil, err
	}
	bypassValue, err := env.Parameter(ctx, ParamBypassHeaderValue)
	if err != nil {
		return nil, err
	}
	var credentials basicAuthSecret
	if err := env.SecretJSON(ctx, SecretBasicAuth, &credentials); err != nil {
		return nil, err
	}
	return New("https://"+host, credentials.Username, credentials.Password, bypassName, bypassValue, opts...), nil
}

// New builds a Service against an explicit endpoint.
func New(baseURL, username, password, bypassHeaderName, bypassHeaderValue string, opts ...httpx.Option) *Service {
	auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	common := []httpx.Option{
		httpx.WithHeader("Authorization", "Basic "+auth),
		httpx.WithHeader(bypassHeaderName, bypassHeaderValue),
		httpx.WithHeader("Cristin-Representing-Institution", RepresentingInstitution),
	}
	common = append(common, opts...)

	patchOpts := append([]httpx.Option{
		httpx.WithHeader("Content-Type", "application/merge-patch+json"),
	}, common...)

	return &Service{
		baseURL: baseURL,
		api:     httpx.New(common...),
		patch:   httpx.New(patchOpts...),
	}
}

// AddPerson creates a person and returns the created document.
func (s *Service) AddPerson(ctx context.Context, person Person) (Person, error) {
	var created Person
	url := fmt.Sprintf("%s/persons", s.baseURL)
	if err := s.api.DoJSON(ctx, http.MethodPost, url, person, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdatePerson merge-patches a person. Identity fields Cristin
// refuses to change are stripped before sending.
func (s *Service) UpdatePerson(ctx context.Context, personID string, person Person) error {
	payload := make(Person, len(person))
	for key, value := range person {
		payload[key] = value
	}
	delete(payload, "cristin_person_id")
	delete(payload, "norwegian_national_id")

	url := fmt.Sprintf("%s/persons/%s", s.baseURL, personID)
	return s.patch.DoJSON(ctx, http.MethodPatch, url, payload, nil)
}
