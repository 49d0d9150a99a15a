// Package cognitousers searches the account's Cognito user pool by
// attribute values.
package cognitousers

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/environment"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// CognitoAPI is the Cognito surface used by the service.
type CognitoAPI interface {
	ListUsers(ctx context.Context, params *cognitoidentityprovider.ListUsersInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ListUsersOutput, error)
}

// PoolResolver resolves the account's user pool id.
type PoolResolver interface {
	Parameter(ctx context.Context, name string) (string, error)
}

// Service searches users in the account's pool.
type Service struct {
	cognito CognitoAPI
	pool    PoolResolver
	log     logger.Logger
}

// New creates a Service.
func New(cognito CognitoAPI, pool PoolResolver) *Service {
	return &Service{
		cognito: cognito,
		pool:    pool,
		log:     logger.New("cognitousers"),
	}
}

// Search lists every user in the pool and returns those whose
// attribute values contain every word of the search term. Returns an
// empty slice when nothing matches.
func (s *Service) Search(ctx context.Context, searchTerm string) ([]cognitotypes.UserType, error) {
	poolID, err := s.pool.Parameter(ctx, environment.ParamCognitoUserPoolID)
	if err != nil {
		return nil, err
	}

	users, err := s.allUsers(ctx, poolID)
	if err != nil {
		return nil, err
	}

	matches := matchUsers(searchTerm, users)
	s.log.Debug("searched user pool",
		logger.String("pool", poolID),
		logger.Int("users", len(users)),
		logger.Int("matches", len(matches)))
	return matches, nil
}

func (s *Service) allUsers(ctx context.Context, poolID string) ([]cognitotypes.UserType, error) {
	var users []cognitotypes.UserType
	input := &cognitoidentityprovider.ListUsersInput{UserPoolId: aws.String(poolID)}
	for {
		out, err := s.cognito.ListUsers(ctx, input)
		if err != nil {
			return nil, apperrors.FromAWS("cognito-idp", err)
		}
		users = append(users, out.Users...)
		if out.PaginationToken == nil {
			return users, nil
		}
		input.PaginationToken = out.PaginationToken
	}
}

// matchUsers keeps the users whose joined attribute values contain
// every word of the search term.
func matchUsers(searchTerm string, users []cognitotypes.UserType) []cognitotypes.UserType {
	words := strings.Fields(searchTerm)
	matches := []cognitotypes.UserType{}

	for _, user := range users {
		values := make([]string, 0, len(user.Attributes))
		for _, attribute := range user.Attributes {
			values = append(values, aws.ToString(attribute.Value))
		}
		haystack := strings.Join(values, " ")

		matched := true
		for _, word := range words {
			if !strings.Contains(haystack, word) {
				matched = false
				break
			}
		}
		if matched {
			matches = append(matches, user)
		}
	}
	return matches
}
