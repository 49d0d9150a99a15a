// Package awsctx resolves the credential scope a single CLI
// invocation runs under: a named AWS profile (or the default chain)
// turned into an aws.Config plus account metadata.
package awsctx

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

// AccountAliasAPI is the IAM surface needed for alias lookup.
type AccountAliasAPI interface {
	ListAccountAliases(ctx context.Context, params *iam.ListAccountAliasesInput, optFns ...func(*iam.Options)) (*iam.ListAccountAliasesOutput, error)
}

// CallerIdentityAPI is the STS surface needed for credential checks.
type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Load builds an aws.Config for the given profile. An empty profile
// falls back to the default credential chain.
func Load(ctx context.Context, profile string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, apperrors.NewConfigurationError("failed to load AWS config").
			WithCause(err).
			WithDetail("profile", profile)
	}
	return cfg, nil
}

// SplitProfiles splits a comma separated profile list, trimming
// whitespace and dropping empty entries.
func SplitProfiles(profiles string) []string {
	var result []string
	for _, p := range strings.Split(profiles, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// AccountAlias returns the first IAM account alias, or "" when the
// account has none.
func AccountAlias(ctx context.Context, client AccountAliasAPI) (string, error) {
	out, err := client.ListAccountAliases(ctx, &iam.ListAccountAliasesInput{})
	if err != nil {
		return "", apperrors.FromAWS("iam", err)
	}
	if len(out.AccountAliases) == 0 {
		return "", nil
	}
	return out.AccountAliases[0], nil
}

// AccountID validates the credentials and returns the account ID.
func AccountID(ctx context.Context, client CallerIdentityAPI) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", apperrors.FromAWS("sts", err)
	}
	return aws.ToString(out.Account), nil
}
