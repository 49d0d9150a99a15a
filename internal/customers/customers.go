// Package customers checks referential integrity between the customer
// registry and the users-and-roles tables.
package customers

import (
	"context"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/dynamo"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// Table name prefixes in the account.
const (
	CustomersTablePrefix = "nva-customers"
	UsersTablePrefix     = "nva-users-and-roles"
)

var (
	customerIDPattern  = regexp.MustCompile(`customer/(.+)`)
	firstNumberPattern = regexp.MustCompile(`\d+`)
)

// DynamoAPI is the DynamoDB surface used by the service.
type DynamoAPI interface {
	dynamo.ListTablesAPI
	dynamo.ScanAPI
}

// Service runs the customer integrity checks.
type Service struct {
	client DynamoAPI
	log    logger.Logger
}

// New creates a Service.
func New(client DynamoAPI) *Service {
	return &Service{client: client, log: logger.New("customers")}
}

// MissingCustomer is a user reference to a customer that does not
// exist in the registry.
type MissingCustomer struct {
	PrimaryKeyHashKey string `json:"PrimaryKeyHashKey"`
	MissingCustomerID string `json:"MissingCustomerId"`
}

// ListMissing returns the customer identifiers referenced by user
// institutions that are absent from the customers table, in first-seen
// user order and without repeats.
func (s *Service) ListMissing(ctx context.Context) ([]MissingCustomer, error) {
	existing, err := s.customerIdentifiers(ctx)
	if err != nil {
		return nil, err
	}

	usersTable, err := dynamo.FindTableByPrefix(ctx, s.client, UsersTablePrefix)
	if err != nil {
		return nil, err
	}

	var missing []MissingCustomer
	reported := make(map[string]bool)
	_, err = dynamo.ForEachScanBatch(ctx, s.client, &dynamodb.ScanInput{TableName: &usersTable}, func(items []dynamo.Item, _ int) error {
		for _, item := range items {
			var user struct {
				PrimaryKeyHashKey string `dynamodbav:"PrimaryKeyHashKey"`
				Institution       string `dynamodbav:"institution"`
			}
			if err := attributevalue.UnmarshalMap(item, &user); err != nil {
				return err
			}
			match := customerIDPattern.FindStringSubmatch(user.Institution)
			if match == nil {
				continue
			}
			customerID := match[1]
			if existing[customerID] || reported[customerID] {
				continue
			}
			reported[customerID] = true
			missing = append(missing, MissingCustomer{
				PrimaryKeyHashKey: user.PrimaryKeyHashKey,
				MissingCustomerID: customerID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checked customer references",
		logger.Int("existing", len(existing)),
		logger.Int("missing", len(missing)))
	return missing, nil
}

// DuplicateGroup is a set of customers sharing the same cristin
// organization number.
type DuplicateGroup struct {
	Key       string                   `json:"key"`
	Customers []map[string]interface{} `json:"customers"`
}

// ListDuplicates groups customers by the first number in their
// cristinId and returns every group with two or more members. Groups
// are ordered by first occurrence in the scan.
func (s *Service) ListDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	customersTable, err := dynamo.FindTableByPrefix(ctx, s.client, CustomersTablePrefix)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]map[string]interface{})
	var order []string
	_, err = dynamo.ForEachScanBatch(ctx, s.client, &dynamodb.ScanInput{TableName: &customersTable}, func(items []dynamo.Item, _ int) error {
		for _, item := range items {
			var customer map[string]interface{}
			if err := attributevalue.UnmarshalMap(item, &customer); err != nil {
				return err
			}
			cristinID, _ := customer["cristinId"].(string)
			key := firstNumberPattern.FindString(cristinID)
			if key == "" {
				continue
			}
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], customer)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var duplicates []DuplicateGroup
	for _, key := range order {
		if len(groups[key]) >= 2 {
			duplicates = append(duplicates, DuplicateGroup{Key: key, Customers: groups[key]})
		}
	}

	s.log.Info("checked for duplicate customers",
		logger.Int("groups", len(duplicates)))
	return duplicates, nil
}

func (s *Service) customerIdentifiers(ctx context.Context) (map[string]bool, error) {
	customersTable, err := dynamo.FindTableByPrefix(ctx, s.client, CustomersTablePrefix)
	if err != nil {
		return nil, err
	}

	identifiers := make(map[string]bool)
	_, err = dynamo.ForEachScanBatch(ctx, s.client, &dynamodb.ScanInput{TableName: &customersTable}, func(items []dynamo.Item, _ int) error {
		for _, item := range items {
			var customer struct {
				Identifier string `dynamodbav:"identifier"`
			}
			if err := attributevalue.UnmarshalMap(item, &customer); err != nil {
				return err
			}
			if customer.Identifier != "" {
				identifiers[customer.Identifier] = true
			}
		}
		return nil
	})
	return identifiers, err
}
