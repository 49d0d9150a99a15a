// Package usersroles works against the users-and-roles service: table
// search, user administration over the REST API and terms approval.
package usersroles

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/dynamo"
	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/httpx"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// SystemUser stamps the writes this tool performs on behalf of the
// platform.
const SystemUser = "nva-backend@20754.0.0.0"

// TermsTablePrefix is the prefix of the terms-and-conditions table.
const TermsTablePrefix = "terms-and-conditions"

// DynamoAPI is the DynamoDB surface used by the service.
type DynamoAPI interface {
	dynamo.ListTablesAPI
	dynamo.ScanAPI
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Service talks to the users-and-roles service.
type Service struct {
	dynamo    DynamoAPI
	api       *httpx.Client
	apiDomain string
	log       logger.Logger
}

// New creates a Service. The api client must carry backend
// credentials for the write operations.
func New(dynamoClient DynamoAPI, api *httpx.Client, apiDomain string) *Service {
	return &Service{
		dynamo:    dynamoClient,
		api:       api,
		apiDomain: apiDomain,
		log:       logger.New("usersroles"),
	}
}

// Search scans the users table and returns the items whose values
// contain every word of the search term.
func (s *Service) Search(ctx context.Context, searchTerm string) ([]map[string]interface{}, error) {
	tableName, err := dynamo.FindTableByPrefix(ctx, s.dynamo, "nva-users-and-roles")
	if err != nil {
		return nil, err
	}

	words := strings.Fields(searchTerm)
	var matches []map[string]interface{}
	_, err = dynamo.ForEachScanBatch(ctx, s.dynamo, &dynamodb.ScanInput{TableName: &tableName}, func(items []dynamo.Item, _ int) error {
		for _, item := range items {
			var doc map[string]interface{}
			if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
				return err
			}
			if matchesAllWords(doc, words) {
				matches = append(matches, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("searched users table",
		logger.String("table", tableName),
		logger.Int("matches", len(matches)))
	return matches, nil
}

func matchesAllWords(doc map[string]interface{}, words []string) bool {
	values := make([]string, 0, len(doc))
	for _, value := range doc {
		values = append(values, fmt.Sprint(value))
	}
	haystack := strings.Join(values, " ")

	for _, word := range words {
		if !strings.Contains(haystack, word) {
			return false
		}
	}
	return true
}

// GetUser fetches a user by username from the REST API.
func (s *Service) GetUser(ctx context.Context, username string) (map[string]interface{}, error) {
	var user map[string]interface{}
	endpoint := fmt.Sprintf("https://%s/users-roles/users/%s", s.apiDomain, url.QueryEscape(username))
	if err := s.api.GetJSON(ctx, endpoint, &user); err != nil {
		return nil, err
	}
	return user, nil
}

// AddUser creates a user through the REST API and returns the created
// resource.
func (s *Service) AddUser(ctx context.Context, person map[string]interface{}) (map[string]interface{}, error) {
	var created map[string]interface{}
	endpoint := fmt.Sprintf("https://%s/users-roles/users", s.apiDomain)
	if err := s.api.DoJSON(ctx, "POST", endpoint, person, &created); err != nil {
		return nil, err
	}
	s.log.Info("created user", logger.Any("username", created["username"]))
	return created, nil
}

// UpdateUser replaces a user through the REST API. The user document
// must carry its username.
func (s *Service) UpdateUser(ctx context.Context, user map[string]interface{}) (map[string]interface{}, error) {
	username, _ := user["username"].(string)
	if username == "" {
		return nil, apperrors.NewValidationError("user document has no username")
	}

	var updated map[string]interface{}
	endpoint := fmt.Sprintf("https://%s/users-roles/users/%s", s.apiDomain, url.QueryEscape(username))
	if err := s.api.DoJSON(ctx, "PUT", endpoint, user, &updated); err != nil {
		return nil, err
	}
	s.log.Info("updated user", logger.String("username", username))
	return updated, nil
}

// TermsItem is the approval record written to the terms table.
type TermsItem struct {
	ID                 string `dynamodbav:"id" json:"id"`
	Type               string `dynamodbav:"type" json:"type"`
	Created            string `dynamodbav:"created" json:"created"`
	Modified           string `dynamodbav:"modified" json:"modified"`
	ModifiedBy         string `dynamodbav:"modifiedBy" json:"modifiedBy"`
	Owner              string `dynamodbav:"owner" json:"owner"`
	TermsConditionsURI string `dynamodbav:"termsConditionsUri" json:"termsConditionsUri"`
}

// ApproveTerms records acceptance of the current terms and conditions
// for a cristin person.
func (s *Service) ApproveTerms(ctx context.Context, personID string) (*TermsItem, error) {
	tableName, err := dynamo.FindTableByPrefix(ctx, s.dynamo, TermsTablePrefix)
	if err != nil {
		return nil, err
	}

	var current struct {
		TermsConditionsURI string `json:"termsConditionsUri"`
	}
	endpoint := fmt.Sprintf("https://%s/users-roles/terms-and-conditions/current", s.apiDomain)
	if err := s.api.GetJSON(ctx, endpoint, &current); err != nil {
		return nil, err
	}
	if current.TermsConditionsURI == "" {
		return nil, apperrors.NewRemoteServiceError("current terms and conditions URI not found")
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "000Z"
	item := &TermsItem{
		ID:                 fmt.Sprintf("https://%s/cristin/person/%s", s.apiDomain, personID),
		Type:               "TermsConditions",
		Created:            timestamp,
		Modified:           timestamp,
		ModifiedBy:         SystemUser,
		Owner:              SystemUser,
		TermsConditionsURI: current.TermsConditionsURI,
	}

	attrs, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("marshal terms item: %w", err)
	}
	if _, err := s.dynamo.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &tableName,
		Item:      attrs,
	}); err != nil {
		return nil, apperrors.FromAWS("dynamodb", err)
	}

	s.log.Info("approved terms",
		logger.String("person", personID),
		logger.String("terms", current.TermsConditionsURI))
	return item, nil
}
