// Package dynamo holds the DynamoDB plumbing shared by the commands:
// table name resolution, paginated batch iteration and the codec for
// the compressed publication data attribute.
package dynamo

import (
	"context"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

// PublicationsTablePattern matches the publication API table across
// environments.
const PublicationsTablePattern = `^nva-resources-master-pipelines-NvaPublicationApiPipeline-.*-nva-publication-api$`

// ListTablesAPI is the surface needed for table resolution.
type ListTablesAPI interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

// FindTableByPattern returns the first table whose name matches the
// regular expression. Table environments carry generated suffixes, so
// commands address tables by pattern rather than exact name.
func FindTableByPattern(ctx context.Context, client ListTablesAPI, pattern string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", apperrors.NewValidationError("invalid table pattern").
			WithCause(err).
			WithDetail("pattern", pattern)
	}
	return findTable(ctx, client, pattern, re.MatchString)
}

// FindTableByPrefix returns the first table whose name starts with prefix.
func FindTableByPrefix(ctx context.Context, client ListTablesAPI, prefix string) (string, error) {
	return findTable(ctx, client, prefix, func(name string) bool {
		return strings.HasPrefix(name, prefix)
	})
}

// FindTableBySubstring returns the first table whose name contains substr.
func FindTableBySubstring(ctx context.Context, client ListTablesAPI, substr string) (string, error) {
	return findTable(ctx, client, substr, func(name string) bool {
		return strings.Contains(name, substr)
	})
}

func findTable(ctx context.Context, client ListTablesAPI, wanted string, match func(string) bool) (string, error) {
	input := &dynamodb.ListTablesInput{}
	for {
		out, err := client.ListTables(ctx, input)
		if err != nil {
			return "", apperrors.FromAWS("dynamodb", err)
		}
		for _, name := range out.TableNames {
			if match(name) {
				return name, nil
			}
		}
		if out.LastEvaluatedTableName == nil {
			break
		}
		input.ExclusiveStartTableName = out.LastEvaluatedTableName
	}
	return "", apperrors.NewNotFoundError("no table matched").WithDetail("wanted", wanted)
}
