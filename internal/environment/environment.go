// Package environment reads the deployment-specific settings the NVA
// services publish to the account: SSM parameters and Secrets Manager
// secrets.
package environment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

// Well-known parameter and secret names.
const (
	ParamAPIDomain         = "/NVA/ApiDomain"
	ParamCognitoURI        = "/NVA/CognitoUri"
	ParamCognitoUserPoolID = "CognitoUserPoolId"

	SecretBackendClientCredentials = "BackendCognitoClientCredentials"
)

// ParameterAPI is the SSM surface used by the CLI.
type ParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SecretAPI is the Secrets Manager surface used by the CLI.
type SecretAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Environment resolves parameters and secrets for one account.
type Environment struct {
	params  ParameterAPI
	secrets SecretAPI
}

// New creates an Environment from an AWS config.
func New(cfg aws.Config) *Environment {
	return &Environment{
		params:  ssm.NewFromConfig(cfg),
		secrets: secretsmanager.NewFromConfig(cfg),
	}
}

// NewWithClients wires explicit clients, used by tests.
func NewWithClients(params ParameterAPI, secrets SecretAPI) *Environment {
	return &Environment{params: params, secrets: secrets}
}

// Parameter returns a decrypted SSM parameter value.
func (e *Environment) Parameter(ctx context.Context, name string) (string, error) {
	out, err := e.params.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", apperrors.FromAWS("ssm", err).WithDetail("parameter", name)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// SecretJSON reads a Secrets Manager secret and unmarshals its JSON
// secret string into v.
func (e *Environment) SecretJSON(ctx context.Context, name string, v interface{}) error {
	out, err := e.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return apperrors.FromAWS("secretsmanager", err).WithDetail("secret", name)
	}
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), v); err != nil {
		return fmt.Errorf("decode secret %s: %w", name, err)
	}
	return nil
}

// APIDomain returns the NVA API domain for the account.
func (e *Environment) APIDomain(ctx context.Context) (string, error) {
	return e.Parameter(ctx, ParamAPIDomain)
}

// CognitoURI returns the Cognito base URI for the account.
func (e *Environment) CognitoURI(ctx context.Context) (string, error) {
	return e.Parameter(ctx, ParamCognitoURI)
}
