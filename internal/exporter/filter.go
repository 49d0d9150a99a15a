package exporter

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

// supported filter operators, in the attribute:operator:value form
// accepted by ParseFilters.
var operators = []string{
	"begins_with", "eq", "ne", "contains", "exists", "not_exists",
	"gt", "gte", "lt", "lte",
}

// ParseFilters parses filter expressions of the form
// "attribute:operator:value" and combines them with AND logic. Values
// may themselves contain colons ("PK0:begins_with:Resource:").
func ParseFilters(filters []string) (*expression.ConditionBuilder, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	combined, err := parseFilter(filters[0])
	if err != nil {
		return nil, err
	}
	for _, filter := range filters[1:] {
		next, err := parseFilter(filter)
		if err != nil {
			return nil, err
		}
		combined = combined.And(next)
	}
	return &combined, nil
}

func parseFilter(filter string) (expression.ConditionBuilder, error) {
	parts := strings.SplitN(filter, ":", 3)
	if len(parts) < 3 {
		return expression.ConditionBuilder{}, apperrors.NewValidationError(
			"filter expression must be in format 'attribute:operator:value'").
			WithDetail("filter", filter)
	}

	attribute := expression.Name(parts[0])
	operator := parts[1]
	value := parts[2]

	switch operator {
	case "begins_with":
		return attribute.BeginsWith(value), nil
	case "eq":
		return attribute.Equal(expression.Value(value)), nil
	case "ne":
		return attribute.NotEqual(expression.Value(value)), nil
	case "contains":
		return attribute.Contains(value), nil
	case "exists":
		return attribute.AttributeExists(), nil
	case "not_exists":
		return attribute.AttributeNotExists(), nil
	case "gt":
		return attribute.GreaterThan(expression.Value(value)), nil
	case "gte":
		return attribute.GreaterThanEqual(expression.Value(value)), nil
	case "lt":
		return attribute.LessThan(expression.Value(value)), nil
	case "lte":
		return attribute.LessThanEqual(expression.Value(value)), nil
	default:
		return expression.ConditionBuilder{}, apperrors.NewValidationError(
			"unsupported filter operator").
			WithDetail("operator", operator).
			WithDetail("supported", strings.Join(operators, ", "))
	}
}
